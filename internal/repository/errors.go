package repository

import (
	"errors"
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

var ErrNotFound = errors.New("document not found")

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if kivik.HTTPStatus(err) == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
