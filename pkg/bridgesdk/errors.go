package bridgesdk

import "errors"

var (
	ErrNoCachedData      = errors.New("no cached data found")
	ErrUnknownObjectType = errors.New("unknown bridge object type")
	ErrActivityNotFound  = errors.New("scheduled activity not found")
)
