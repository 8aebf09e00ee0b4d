// Package model defines the document types stored by stitch: accounts,
// posts, and comments, plus the nested aggregate returned by the graph read.
//
// Identifiers are application-assigned numeric ids, not store-generated ones.
// Post.OwnerID and Comment.PostID are logical foreign keys; the store does
// not enforce them, the integrity and seed packages do.
package model

import (
	"github.com/go-playground/validator/v10"
)

// Geo holds the coordinates of an account address.
type Geo struct {
	Lat string `json:"lat" dynamodbav:"lat"`
	Lng string `json:"lng" dynamodbav:"lng"`
}

// Address is the postal address of an account.
type Address struct {
	Street  string `json:"street" dynamodbav:"street"`
	Suite   string `json:"suite" dynamodbav:"suite"`
	City    string `json:"city" dynamodbav:"city"`
	Zipcode string `json:"zipcode" dynamodbav:"zipcode"`
	Geo     Geo    `json:"geo" dynamodbav:"geo"`
}

// Company is the employer info carried on an account.
type Company struct {
	Name        string `json:"name" dynamodbav:"name"`
	CatchPhrase string `json:"catchPhrase" dynamodbav:"catchPhrase"`
	BS          string `json:"bs" dynamodbav:"bs"`
}

// Account is a stored account document.
type Account struct {
	ID      int64   `json:"id" dynamodbav:"id" validate:"required,gt=0"`
	Name    string  `json:"name" dynamodbav:"name"`
	Handle  string  `json:"handle" dynamodbav:"handle"`
	Email   string  `json:"email" dynamodbav:"email" validate:"omitempty,email"`
	Address Address `json:"address" dynamodbav:"address"`
	Phone   string  `json:"phone" dynamodbav:"phone"`
	Website string  `json:"website" dynamodbav:"website"`
	Company Company `json:"company" dynamodbav:"company"`
}

// Post is a stored post document. OwnerID names the account that owns it.
type Post struct {
	ID      int64  `json:"id" dynamodbav:"id" validate:"required,gt=0"`
	OwnerID int64  `json:"ownerId" dynamodbav:"ownerId" validate:"required,gt=0"`
	Title   string `json:"title" dynamodbav:"title"`
	Body    string `json:"body" dynamodbav:"body"`
}

// Comment is a stored comment document. PostID names its parent post.
type Comment struct {
	ID     int64  `json:"id" dynamodbav:"id" validate:"required,gt=0"`
	PostID int64  `json:"postId" dynamodbav:"postId" validate:"required,gt=0"`
	Name   string `json:"name" dynamodbav:"name"`
	Email  string `json:"email" dynamodbav:"email"`
	Body   string `json:"body" dynamodbav:"body"`
}

// PostGraph is a post together with its comments. Comments is never nil so
// a post with no comments serializes as "comments": [].
type PostGraph struct {
	Post
	Comments []Comment `json:"comments"`
}

// AccountGraph is the nested account -> posts -> comments view assembled
// from the three collections. Posts is never nil.
type AccountGraph struct {
	Account
	Posts []PostGraph `json:"posts"`
}

// global validator instance
var validate = validator.New()

// Validate checks the structural invariants of an account document.
func (a *Account) Validate() error { return validate.Struct(a) }

// Validate checks the structural invariants of a post document.
func (p *Post) Validate() error { return validate.Struct(p) }

// Validate checks the structural invariants of a comment document.
func (c *Comment) Validate() error { return validate.Struct(c) }
