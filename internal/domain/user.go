package domain

// User Model
type User struct {
	ID       uint      `gorm:"primaryKey"`                  // Primary key
	Username string    `gorm:"unique;not null"`             // Unique username, stored lowercase
	Email    string    `gorm:"unique;not null"`             // Unique email, stored lowercase
	Password string    `gorm:"not null"`                    // Hashed password
	Role     string    `gorm:"default:user"`                // Role: user or admin
	Balances []Balance `gorm:"constraint:OnUpdate:CASCADE"` // One balance row per supported currency
}
