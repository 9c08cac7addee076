package model

import "time"

// Patient is a person whose contact and birth data the clinic keeps on record.
type Patient struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FirstName   string    `json:"firstName" gorm:"column:first_name;size:255;not null"`
	LastName    string    `json:"lastName" gorm:"column:last_name;size:255;not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PhoneNumber string    `json:"phoneNumber" gorm:"column:phone_number;size:64;not null"`
	Dob         Date      `json:"dob" gorm:"column:date_of_birth;type:date;not null" swaggertype:"string" format:"date" example:"1980-01-15"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatePatientRequest carries every field of a new patient as submitted by the client.
type CreatePatientRequest struct {
	FirstName   string `json:"firstName" example:"John"`
	LastName    string `json:"lastName" example:"Doe"`
	Email       string `json:"email" example:"john.doe@email.com"`
	PhoneNumber string `json:"phoneNumber" example:"+1-555-0123"`
	Dob         string `json:"dob" example:"1980-01-15"`
}

// UpdatePatientRequest is a partial patch; nil fields are left untouched.
type UpdatePatientRequest struct {
	FirstName   *string `json:"firstName,omitempty" example:"Jane"`
	LastName    *string `json:"lastName,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Dob         *string `json:"dob,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (r UpdatePatientRequest) IsEmpty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil && r.PhoneNumber == nil && r.Dob == nil
}
