package models

import (
	"time"
)

type Document struct {
	ID                string    `json:"id" gorm:"primaryKey;type:text"`
	Type              string    `json:"type" gorm:"type:text;index"`
	ParentID          *string   `json:"parentID" gorm:"type:text;index"`
	ParentType        string    `json:"parentType" gorm:"type:text"`
	Name              string    `json:"name" gorm:"type:text"`
	Img               string    `json:"img" gorm:"type:text"`
	SheetType         string    `json:"sheetType" gorm:"type:text"`
	Sort              int       `json:"sort" gorm:"type:integer;default:0"`
	Quantity          int       `json:"quantity" gorm:"type:integer;default:0"`
	OriginID          *string   `json:"originID" gorm:"type:text;index"`
	Hidden            bool      `json:"hidden" gorm:"type:boolean;default:false"`
	DefaultPermission int       `json:"defaultPermission" gorm:"type:integer;default:0"`
	CDate             time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
	MDate             time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type DocumentPermission struct {
	DocumentID string   `json:"documentID" gorm:"primaryKey;type:text"`
	Document   Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE;"`
	UserID     string   `json:"userID" gorm:"primaryKey;type:text"`
	Level      int      `json:"level" gorm:"type:integer"`
}
