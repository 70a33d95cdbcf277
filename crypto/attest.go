package crypto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/calehh/impact-app/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AttestationFields is the fixed key order of the attestation payload. It is
// part of the on-chain record format and must never change.
var AttestationFields = []string{
	"id",
	"user_address",
	"action_type",
	"proof_url",
	"description",
	"location_cell",
	"created_at",
}

// AttestationTimeLayout formats created_at inside the payload.
const AttestationTimeLayout = time.RFC3339Nano

type AttestationPayload struct {
	Id           string
	UserAddress  string
	ActionType   string
	ProofUrl     string
	Description  *string
	LocationCell *string
	CreatedAt    time.Time
}

func NewAttestationPayload(sub *state.Submission) AttestationPayload {
	return AttestationPayload{
		Id:           sub.Id,
		UserAddress:  sub.UserAddress,
		ActionType:   sub.ActionType,
		ProofUrl:     sub.ProofUrl,
		Description:  sub.Description,
		LocationCell: sub.LocationCell,
		CreatedAt:    sub.CreatedAt,
	}
}

func (p AttestationPayload) values() []*string {
	created := p.CreatedAt.UTC().Format(AttestationTimeLayout)
	return []*string{
		&p.Id,
		&p.UserAddress,
		&p.ActionType,
		&p.ProofUrl,
		p.Description,
		p.LocationCell,
		&created,
	}
}

// Encode renders the payload as a compact JSON object with keys in
// AttestationFields order. Absent values are written as null.
func (p AttestationPayload) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range p.values() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, AttestationFields[i])
		buf.WriteByte(':')
		if v == nil {
			buf.WriteString("null")
			continue
		}
		writeString(&buf, *v)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
}

func (p AttestationPayload) Hash() common.Hash {
	return crypto.Keccak256Hash(p.Encode())
}

// ComputeHash is the attestation digest recorded on-chain for sub.
func ComputeHash(sub *state.Submission) common.Hash {
	return NewAttestationPayload(sub).Hash()
}
