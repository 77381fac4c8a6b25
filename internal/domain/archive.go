package domain

import "time"

// StoryArchive is the durable record of a finished story, written to MySQL
// by the background worker when a room is deleted or reaped. Live room state
// never touches the database; this table is write-once per room code.
type StoryArchive struct {
	ID            uint      `gorm:"primaryKey"`
	RoomCode      string    `gorm:"uniqueIndex;size:191;not null"`
	RoomName      string    `gorm:"size:191"`
	ActivityTitle string    `gorm:"size:191"`
	RoomMode      RoomMode  `gorm:"size:32;not null"`
	Story         string    `gorm:"type:text;not null"`
	WriterCount   int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}
