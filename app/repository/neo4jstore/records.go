package neo4jstore

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"nestodo/app/models"
)

func todoFromRecord(record *neo4j.Record) (models.Todo, error) {
	var t models.Todo
	var err error
	if t.ID, _, err = neo4j.GetRecordValue[string](record, "id"); err != nil {
		return t, err
	}
	if t.OwnerID, _, err = neo4j.GetRecordValue[string](record, "ownerId"); err != nil {
		return t, err
	}
	if t.Title, _, err = neo4j.GetRecordValue[string](record, "title"); err != nil {
		return t, err
	}
	if t.Completed, _, err = neo4j.GetRecordValue[bool](record, "completed"); err != nil {
		return t, err
	}

	// parentId is null for root todos
	parentID, isNil, err := neo4j.GetRecordValue[string](record, "parentId")
	if err != nil {
		return t, err
	}
	if !isNil {
		t.ParentID = &parentID
	}

	if t.CreatedAt, err = recordTime(record, "createdAt"); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = recordTime(record, "updatedAt"); err != nil {
		return t, err
	}
	return t, nil
}

func userFromRecord(record *neo4j.Record) (models.User, error) {
	var u models.User
	var err error
	if u.ID, _, err = neo4j.GetRecordValue[string](record, "id"); err != nil {
		return u, err
	}
	if u.Email, _, err = neo4j.GetRecordValue[string](record, "email"); err != nil {
		return u, err
	}
	if u.Name, _, err = neo4j.GetRecordValue[string](record, "name"); err != nil {
		return u, err
	}
	if u.PasswordHash, _, err = neo4j.GetRecordValue[string](record, "passwordHash"); err != nil {
		return u, err
	}
	if u.CreatedAt, err = recordTime(record, "createdAt"); err != nil {
		return u, err
	}
	return u, nil
}

// recordTime reads a temporal value; a missing value yields the zero time.
func recordTime(record *neo4j.Record, key string) (time.Time, error) {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return time.Time{}, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case neo4j.LocalDateTime:
		return v.Time().UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%s: unexpected type %T", key, raw)
	}
}
