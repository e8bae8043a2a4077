package models

import "time"

// Relationship is one element of the relationship sequence stored on an
// owning entry. Value holds the record encoded with SchemaVersion.
type Relationship struct {
	OwnerID       string    `json:"ownerID" gorm:"primaryKey;type:text"`
	Owner         Document  `json:"-" gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE;"`
	ID            string    `json:"id" gorm:"primaryKey;type:text"`
	TargetID      string    `json:"targetID" gorm:"type:text;index"`
	Position      int       `json:"position" gorm:"type:integer"`
	SchemaVersion int       `json:"schemaVersion" gorm:"type:integer"`
	Value         string    `json:"value" gorm:"type:text"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
}

// Offering is stored under its recipient entry and indexed by proposer so
// both sides can list it.
type Offering struct {
	ID            string    `json:"id" gorm:"primaryKey;type:text"`
	RecipientID   string    `json:"recipientID" gorm:"type:text;index"`
	Recipient     Document  `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnDelete:CASCADE;"`
	ProposerID    string    `json:"proposerID" gorm:"type:text;index"`
	State         string    `json:"state" gorm:"type:text;index"`
	SchemaVersion int       `json:"schemaVersion" gorm:"type:integer"`
	Value         string    `json:"value" gorm:"type:text"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
	MDate         time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
