package domain

const (
	ViewerCtxKey = "ej-viewer"
)

const (
	ViewerLocaleHeader = "accept-language"
)

type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionLimited
	PermissionObserver
	PermissionOwner
)

type Role string

const (
	RolePlayer Role = "player"
	RoleGM     Role = "gm"
)

type OfferingState string

const (
	OfferingProposed  OfferingState = "proposed"
	OfferingAccepted  OfferingState = "accepted"
	OfferingCancelled OfferingState = "cancelled"
	OfferingRejected  OfferingState = "rejected"
)

func (s OfferingState) Terminal() bool {
	return s == OfferingAccepted || s == OfferingCancelled || s == OfferingRejected
}

const (
	RelationshipSchemaVersion = 1
	OfferingSchemaVersion     = 1
)
