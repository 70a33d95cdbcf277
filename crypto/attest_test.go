package crypto

import (
	"testing"
	"time"

	"github.com/calehh/impact-app/state"
	"github.com/calehh/impact-app/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testSubmission() *state.Submission {
	return &state.Submission{
		Id:           "abc",
		UserAddress:  "0x00000000000000000000000000000000000000AA",
		ActionType:   "TREE",
		Description:  strPtr("planted <3> oaks & a birch"),
		ProofUrl:     "https://example.org/proofs/img.jpg",
		LocationCell: nil,
		Status:       types.StatusPending,
		CreatedAt:    time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC),
	}
}

func TestEncodeGolden(t *testing.T) {
	got := string(NewAttestationPayload(testSubmission()).Encode())
	want := `{"id":"abc","user_address":"0x00000000000000000000000000000000000000AA",` +
		`"action_type":"TREE","proof_url":"https://example.org/proofs/img.jpg",` +
		`"description":"planted <3> oaks & a birch","location_cell":null,` +
		`"created_at":"2025-03-14T09:26:53.589793Z"}`
	assert.Equal(t, want, got)
	assert.Equal(t, crypto.Keccak256Hash([]byte(want)), ComputeHash(testSubmission()))
}

func TestHashDeterministic(t *testing.T) {
	a := ComputeHash(testSubmission())
	b := ComputeHash(testSubmission())
	assert.Equal(t, a, b)

	// status, points and tx hash are not part of the payload
	sub := testSubmission()
	points := int64(10)
	tx := "0x01"
	sub.Status = types.StatusApproved
	sub.Points = &points
	sub.TxHash = &tx
	assert.Equal(t, a, ComputeHash(sub))

	// the timestamp is hashed in UTC regardless of its location
	sub = testSubmission()
	sub.CreatedAt = sub.CreatedAt.In(time.FixedZone("CET", 3600))
	assert.Equal(t, a, ComputeHash(sub))
}

func TestHashChangesWithEveryField(t *testing.T) {
	base := ComputeHash(testSubmission())
	mutations := map[string]func(s *state.Submission){
		"id":            func(s *state.Submission) { s.Id = "abd" },
		"user_address":  func(s *state.Submission) { s.UserAddress = "0x00000000000000000000000000000000000000AB" },
		"action_type":   func(s *state.Submission) { s.ActionType = "RECYCLE" },
		"proof_url":     func(s *state.Submission) { s.ProofUrl = "https://example.org/proofs/img.jpeg" },
		"description":   func(s *state.Submission) { s.Description = strPtr("planted <3> oaks & a birch.") },
		"no desc":       func(s *state.Submission) { s.Description = nil },
		"location_cell": func(s *state.Submission) { s.LocationCell = strPtr("") },
		"created_at":    func(s *state.Submission) { s.CreatedAt = s.CreatedAt.Add(time.Microsecond) },
	}
	seen := map[string]string{base.Hex(): "base"}
	for name, mutate := range mutations {
		sub := testSubmission()
		mutate(sub)
		h := ComputeHash(sub).Hex()
		prev, dup := seen[h]
		require.False(t, dup, "%s collides with %s", name, prev)
		seen[h] = name
	}
}

func TestNullIsNotEmptyString(t *testing.T) {
	sub := testSubmission()
	sub.Description = nil
	assert.Contains(t, string(NewAttestationPayload(sub).Encode()), `"description":null`)
	sub.Description = strPtr("null")
	assert.Contains(t, string(NewAttestationPayload(sub).Encode()), `"description":"null"`)
}
