package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        int64
	PublicID  uuid.UUID
	Name      string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

type Post struct {
	ID        int64
	Title     string
	Text      string
	Image     string
	UserID    int64
	CreatedAt time.Time
}

type Message struct {
	Email   string `json:"to"`
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
}
