package models

// User represents a registered user. IDs are assigned by the service layer
// as max(existing)+1 and are immutable after creation. The JSON encoding
// below is also the persisted blob format (file and cookie backends).
type User struct {
	ID       int    `json:"id" gorm:"primaryKey"`
	Nickname string `json:"nickname" gorm:"type:varchar(100)"`
	Email    string `json:"email" gorm:"type:varchar(255)"`
}

// UserForm carries the submitted nickname/email pair from the create and
// edit forms. Validation rules live on the tags; see services.ValidateUserForm.
type UserForm struct {
	Nickname string `form:"nickname" validate:"required,min=5"`
	Email    string `form:"email" validate:"required"`
}
