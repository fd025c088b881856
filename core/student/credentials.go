package student

import (
	"crypto/rand"
	"encoding/base32"
	"math/big"

	"github.com/pkg/errors"
)

const (
	lmsIDPrefix    = "LMS"
	lmsIDLen       = 8
	lmsPasswordLen = 12

	pwdUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdLower   = "abcdefghijkmnopqrstuvwxyz"
	pwdDigits  = "23456789"
	pwdSpecial = "@#$%&*!?"
)

// Credentials is the plaintext LMS access handed to a student once.
type Credentials struct {
	LmsID    string
	Password string
}

// CredentialsFunc generates LMS credentials for a student.
type CredentialsFunc func(s Student) (Credentials, error)

// GenerateCredentials keeps the student's LMS ID if any and always issues a new password.
func GenerateCredentials(s Student) (Credentials, error) {
	creds := Credentials{LmsID: s.LmsID}
	if creds.LmsID == "" {
		id, err := generateLmsID()
		if err != nil {
			return Credentials{}, errors.Wrap(err, "generating lms id")
		}
		creds.LmsID = id
	}
	pwd, err := generateLmsPassword()
	if err != nil {
		return Credentials{}, errors.Wrap(err, "generating lms password")
	}
	creds.Password = pwd
	return creds, nil
}

func generateLmsID() (string, error) {
	buf := make([]byte, 5) // 40 bits = 8 base32 chars
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return lmsIDPrefix + code[:lmsIDLen], nil
}

// generateLmsPassword returns a password with at least one char of every class.
func generateLmsPassword() (string, error) {
	classes := []string{pwdUpper, pwdLower, pwdDigits, pwdSpecial}
	all := pwdUpper + pwdLower + pwdDigits + pwdSpecial

	pwd := make([]byte, lmsPasswordLen)
	for i := range pwd {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		c, err := randChar(set)
		if err != nil {
			return "", err
		}
		pwd[i] = c
	}

	// shuffle so the class order is not predictable
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j.Int64()] = pwd[j.Int64()], pwd[i]
	}
	return string(pwd), nil
}

func randChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
