package types

import "time"

// Course is a unit of content owned by an instructor.
type Course struct {
	ID           int     `json:"id" db:"id"`
	Title        string  `json:"title" db:"title"`
	Description  string  `json:"description" db:"description"`
	Duration     string  `json:"duration" db:"duration"`
	Price        float64 `json:"price" db:"price"`
	InstructorID int     `json:"instructor_id" db:"instructor_id"`

	// MediaKey is the object-storage key of the course's media attachment,
	// empty when nothing has been uploaded.
	MediaKey string `json:"media_key,omitempty" db:"media_key"`

	// Students holds the IDs of enrolled students.
	Students []int `json:"students" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
