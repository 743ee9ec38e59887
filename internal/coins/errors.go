package coins

import "fmt"

// CoinNotFoundError indicates a metadata task referenced a slug that does not
// exist in the database. It is fatal to the task and left to the queue's
// redelivery mechanism.
type CoinNotFoundError struct {
	Slug string
}

func (e *CoinNotFoundError) Error() string {
	return fmt.Sprintf("coin with slug %s not found in database", e.Slug)
}
