package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	// Account is a stored credential record. PasswordHash is a PHC string
	// that embeds algorithm, parameters and salt; Salt is kept alongside it
	// for out-of-band verification flows.
	Account struct {
		ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
		Name         string             `bson:"name" json:"name"`
		PasswordHash string             `bson:"password_hash" json:"-"`
		Salt         string             `bson:"salt" json:"-"`
		CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	}
)
