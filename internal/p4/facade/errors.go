package facade

import "errors"

var (
	errUnknownTable  = errors.New("unknown table name")
	errUnknownBlock  = errors.New("unknown counter block name")
	errUnknownAction = errors.New("unknown action name")
)
