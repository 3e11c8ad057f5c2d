// Package keyfile loads provisioned key material from the five-record hex
// file (conventionally ~/.mtpz-data). Every failure here is a provisioning
// error: callers disable the feature and carry on, they never abort.
package keyfile

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"mtpz_auth/internal/model"
)

// ErrProvisioning classifies any missing or malformed key-material record.
var ErrProvisioning = errors.New("keyfile: provisioning error")

// DefaultPath returns the conventional key-material location in the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: no home directory: %v", ErrProvisioning, err)
	}
	return home + "/.mtpz-data", nil
}

// Load reads the five newline-separated records in their fixed order: public
// exponent, encryption key, modulus, private exponent, certificate data. The
// exponent and modulus records stay in hex-string form; the encryption key
// and certificates are decoded to raw bytes.
func Load(path string) (*model.KeyMaterial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 4096), 4096)

	record := func(name string) (string, error) {
		if !scanner.Scan() {
			return "", fmt.Errorf("%w: missing %s record", ErrProvisioning, name)
		}
		return scanner.Text(), nil
	}

	pubExp, err := record("public exponent")
	if err != nil {
		return nil, err
	}

	encKeyHex, err := record("encryption key")
	if err != nil {
		return nil, err
	}
	encKey, err := hex.DecodeString(encKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid hex: %v", ErrProvisioning, err)
	}

	modulus, err := record("modulus")
	if err != nil {
		return nil, err
	}

	privExp, err := record("private exponent")
	if err != nil {
		return nil, err
	}

	certsHex, err := record("certificate data")
	if err != nil {
		return nil, err
	}
	certs, err := hex.DecodeString(certsHex)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate data is not valid hex: %v", ErrProvisioning, err)
	}

	km := &model.KeyMaterial{
		PublicExponent:  pubExp,
		EncryptionKey:   encKey,
		Modulus:         modulus,
		PrivateExponent: privExp,
		Certificates:    certs,
	}
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	return km, nil
}
