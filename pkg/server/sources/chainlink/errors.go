// Package chainlink reads AggregatorV3-compatible price feed contracts on EVM chains.
package chainlink

import "errors"

var (
	// ErrRPCURLRequired indicates that rpc_url configuration is required.
	ErrRPCURLRequired = errors.New("rpc_url is required")
	// ErrAddressRequired indicates that a valid feed contract address is required.
	ErrAddressRequired = errors.New("address is required")
	// ErrIncompleteRound indicates the contract reported a round with no update time.
	ErrIncompleteRound = errors.New("round not complete")
)
