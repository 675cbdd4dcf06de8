package models

type Member struct {
	ID     int64  `json:"id" bson:"_id" yaml:"id"`
	Name   string `json:"name" bson:"name" yaml:"name"`
	Avatar string `json:"avatar" bson:"avatar" yaml:"avatar"`
}

type Project struct {
	ID   string `json:"id" bson:"_id" yaml:"id"`
	Name string `json:"name" bson:"name" yaml:"name"`
}
