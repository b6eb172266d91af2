package domain

import "time"

type Book struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"index;not null"`
	Author          string    `json:"author" gorm:"index;not null"`
	ISBN            string    `json:"isbn" gorm:"uniqueIndex;size:17"`
	Genre           string    `json:"genre,omitempty" gorm:"index;size:64"`
	PublishedYear   int       `json:"published_year,omitempty"`
	Description     string    `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies" gorm:"not null;default:1"`
	AvailableCopies int       `json:"available_copies" gorm:"not null;default:1"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
