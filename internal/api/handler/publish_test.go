package handler

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/publish"
)

// --- Error Translation Tests ---

func TestWritePublishError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "aggregated validation problems",
			err:        &publish.ValidationError{Problems: []string{"invalid crate name `1bad`", "invalid keyword `x y`"}},
			wantStatus: 400,
			wantDetail: "invalid crate name `1bad`",
		},
		{
			name:       "missing fields",
			err:        &publish.MissingFieldsError{Fields: []string{"description", "license"}},
			wantStatus: 400,
			wantDetail: "missing or empty metadata fields: description, license",
		},
		{
			name:       "previously named",
			err:        &publish.PreviouslyNamedError{Name: "Serde"},
			wantStatus: 409,
			wantDetail: "crate was previously named `Serde`",
		},
		{
			name:       "unknown dependency",
			err:        &publish.UnknownCrateError{Name: "ghost"},
			wantStatus: 400,
			wantDetail: "no known crate named `ghost`",
		},
		{
			name:       "duplicate version",
			err:        &publish.DuplicateVersionError{Vers: "1.0.0"},
			wantStatus: 409,
			wantDetail: "crate version `1.0.0` is already uploaded",
		},
		{
			name:       "insert race loser",
			err:        crate.ErrNameTaken,
			wantStatus: 409,
			wantDetail: "crate name has already been claimed by another user",
		},
		{
			name:       "not an owner",
			err:        publish.ErrNotOwner,
			wantStatus: 409,
			wantDetail: "crate name has already been claimed by another user",
		},
		{
			name:       "reserved name",
			err:        crate.ErrReservedName,
			wantStatus: 400,
			wantDetail: "cannot publish a crate with a reserved name",
		},
		{
			name:       "downstream failure",
			err:        &publish.DownstreamError{Stage: "index append", Err: errors.New("push rejected")},
			wantStatus: 502,
			wantDetail: "failed to store the crate, please try again later",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writePublishError(w, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, errDetails(t, w.Body.Bytes()), tc.wantDetail)
		})
	}
}

func TestWritePublishError_ValidationListsEveryProblem(t *testing.T) {
	w := httptest.NewRecorder()
	writePublishError(w, &publish.ValidationError{
		Problems: []string{"first problem", "second problem", "third problem"},
	})

	require.Equal(t, 400, w.Code)
	details := errDetails(t, w.Body.Bytes())
	assert.Equal(t, []string{"first problem", "second problem", "third problem"}, details)
}
