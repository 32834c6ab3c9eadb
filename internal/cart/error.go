package cart

import "errors"

// ErrSellerConflict rejects an item from a different seller than the cart
// already holds. The caller decides whether to clear the cart and retry; the
// aggregate never overwrites on its own.
var ErrSellerConflict = errors.New("cart holds items from another seller")
