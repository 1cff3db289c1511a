package model

// User represents an account row in the `user` table.  PasswordHash holds
// the bcrypt digest and never leaves the server: it has no JSON encoding.
//
// Fields:
//
//	ID           – primary key identifier.
//	Username     – unique, case-sensitive login name.
//	PasswordHash – bcrypt hash (column `password`).
//	Name         – given name.
//	Lastname     – family name.
type User struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
}
