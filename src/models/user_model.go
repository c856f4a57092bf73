package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	Id             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name"`
	Username       string               `json:"username" bson:"username"`
	Email          string               `json:"email" bson:"email"`
	Password       string               `json:"-" bson:"password"`
	ProfilePicture string               `json:"profilePicture" bson:"profilePicture"`
	BannerImg      string               `json:"bannerImg" bson:"bannerImg"`
	Headline       string               `json:"headline" bson:"headline"`
	About          string               `json:"about" bson:"about"`
	Location       string               `json:"location" bson:"location"`
	Skills         []string             `json:"skills" bson:"skills"`
	Experience     []Experience         `json:"experience" bson:"experience"`
	Education      []Education          `json:"education" bson:"education"`
	Connections    []primitive.ObjectID `json:"connections" bson:"connections"`
	UserType       string               `json:"userType" bson:"userType"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// IsConnectedTo reports whether other is in the user's connection set.
func (u *User) IsConnectedTo(other primitive.ObjectID) bool {
	for _, c := range u.Connections {
		if c == other {
			return true
		}
	}
	return false
}

// UserDto is the trimmed user shape embedded in feed and notification
// responses.
type UserDto struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Username       string             `bson:"username" json:"username"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	Headline       string             `bson:"headline" json:"headline,omitempty"`
}

func (u *User) Dto() UserDto {
	return UserDto{
		ID:             u.Id,
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Headline:       u.Headline,
	}
}

type Experience struct {
	Title       string    `json:"title" bson:"title"`
	Company     string    `json:"company" bson:"company"`
	StartDate   time.Time `json:"startDate" bson:"startDate"`
	EndDate     time.Time `json:"endDate" bson:"endDate"`
	Description string    `json:"description" bson:"description"`
}

type Education struct {
	School       string `json:"school" bson:"school"`
	FieldOfStudy string `json:"fieldOfStudy" bson:"fieldOfStudy"`
	StartYear    int    `json:"startYear" bson:"startYear"`
	EndYear      int    `json:"endYear" bson:"endYear"`
}
