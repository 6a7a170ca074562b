package domain

import "time"

// DefaultStatus is assigned to every freshly signed-up user.
const DefaultStatus = "I am new!"

// User is a registered account. Posts holds references (ids) to the posts the
// user created, oldest first.
type User struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordDigest string    `json:"-"`
	Status         string    `json:"status"`
	Posts          []string  `json:"posts"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Summary is the {_id, name} view embedded in posts.
func (u *User) Summary() Creator {
	return Creator{ID: u.ID, Name: u.Name}
}
