package envelope

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"quietdrop/internal/cryptographic/encryption"
	"quietdrop/internal/errs"
	"quietdrop/internal/model"
)

// Ack is the whole response payload for an accepted envelope.
const Ack = "Message received."

// New returns an unfilled envelope stamped with the current UTC time.
func New(sender, recipient string, mt model.MessageType, senderPub model.PublicKey) *model.Envelope {
	return &model.Envelope{
		Timestamp:   time.Now().UTC(),
		MessageType: mt,
		Sender:      sender,
		Recipient:   recipient,
		PublicKey:   senderPub,
	}
}

// Seal encrypts plaintext for recipientPub and stores it as the envelope
// content. On error the envelope is left untouched.
func Seal(env *model.Envelope, plaintext string, recipientPub model.PublicKey, senderSec model.SecretKey) error {
	ct, err := encryption.Encrypt(plaintext, recipientPub, senderSec)
	if err != nil {
		return err
	}
	env.Content = ct
	return nil
}

// Open decrypts the envelope content using the sender key it carries.
func Open(env *model.Envelope, recipientSec model.SecretKey) (string, error) {
	if len(env.Content) == 0 {
		return "", fmt.Errorf("envelope has no content: %w", errs.ErrMalformedInput)
	}
	return encryption.Decrypt(env.Content, env.PublicKey, recipientSec)
}

func Marshal(env *model.Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %v: %w", err, errs.ErrEncoding)
	}
	return data, nil
}

func Unmarshal(data []byte) (*model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %v: %w", err, errs.ErrEncoding)
	}
	return &env, nil
}

// Write serializes env as a single frame.
func Write(w io.Writer, env *model.Envelope) error {
	data, err := Marshal(env)
	if err != nil {
		return err
	}
	return WriteFrame(w, data)
}

// Read reads and decodes a single framed envelope. See ReadFrame for EOF.
func Read(r io.Reader) (*model.Envelope, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
