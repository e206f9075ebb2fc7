package controllers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bioping/bioping/app/models"
)

func TestRecordSearchHitsCountsEveryResult(t *testing.T) {
	orig := addSearchHit
	defer func() { addSearchHit = orig }()

	var counted []uint
	addSearchHit = func(contactID uint) error {
		counted = append(counted, contactID)
		return nil
	}

	recordSearchHits([]models.Contact{{ID: 3}, {ID: 7}, {ID: 11}})

	assert.Equal(t, []uint{3, 7, 11}, counted)
}

func TestRecordSearchHitsStopsOnFirstError(t *testing.T) {
	orig := addSearchHit
	defer func() { addSearchHit = orig }()

	calls := 0
	addSearchHit = func(contactID uint) error {
		calls++
		if calls == 2 {
			return errors.New("connection refused")
		}
		return nil
	}

	recordSearchHits([]models.Contact{{ID: 1}, {ID: 2}, {ID: 3}})

	assert.Equal(t, 2, calls)
}
