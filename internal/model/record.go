package model

// Record is one entry of the correspondence registry, stored in the `data`
// table.  File is the storage reference of the attached upload and is nil
// until a file has been associated with the record.
type Record struct {
	ID       uint64  `json:"id"`
	Date     Date    `json:"date"`
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Subject  string  `json:"subject"`
	File     *string `json:"file"`
	Note     string  `json:"note"`
}
