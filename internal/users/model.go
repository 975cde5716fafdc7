// Package users is a record-oriented CRUD service over one entity type,
// backed by a SQLite store. It is the standing test target for the fluent
// request client.
package users

// User is the stored record. IsMarried defaults to true when omitted on
// creation.
type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Job       string  `json:"job"`
	Age       float64 `json:"age"`
	IsMarried bool    `json:"isMarried"`
}

// UserInput is the wire shape for create and replace. Pointer fields
// distinguish "absent" from zero values so the store can enforce its
// required-field constraints and apply the isMarried default.
type UserInput struct {
	Name      *string  `json:"name"`
	Job       *string  `json:"job"`
	Age       *float64 `json:"age"`
	IsMarried *bool    `json:"isMarried"`
}
