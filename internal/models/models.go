package models

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
}

type Item struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null"                 json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl"`
	OwnerID     uint   `gorm:"index;not null"           json:"ownerId"`
}
