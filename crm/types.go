package crm

import (
	"encoding/json"
	"time"
)

// File describes an uploaded file in the record store.
type File struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Note describes a created note engagement.
type Note struct {
	ID string `json:"id"`
}

type associationsResponse struct {
	Results []associationResult `json:"results"`
}

type associationResult struct {
	ToObjectID json.Number `json:"toObjectId"`
}

type recordResponse struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type noteRequest struct {
	Properties   map[string]string `json:"properties"`
	Associations []noteAssociation `json:"associations"`
}

type noteAssociation struct {
	To    noteAssociationTarget `json:"to"`
	Types []noteAssociationType `json:"types"`
}

type noteAssociationTarget struct {
	ID string `json:"id"`
}

type noteAssociationType struct {
	Category string `json:"associationCategory"`
	TypeID   int    `json:"associationTypeId"`
}
