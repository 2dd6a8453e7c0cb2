// Package eth reads the passport token contract. The engine only needs two
// views: the subject identifier index and the issuer account of a passport.
package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const passportABI = `[
  {
    "name": "findTokenBySubjectId",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "subjectIdHash", "type": "bytes32"}],
    "outputs": [{"name": "tokenId", "type": "uint256"}, {"name": "exists", "type": "bool"}]
  },
  {
    "name": "passportIssuer",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [{"name": "issuer", "type": "address"}]
  }
]`

// Client is a read only gateway to the passport ledger
type Client struct {
	client     *ethclient.Client
	contract   common.Address
	abi        abi.ABI
	network    string
	rpcTimeout time.Duration
}

// NewClient dials the ledger RPC endpoint
func NewClient(rpcURL, contractAddress, network string, rpcTimeout time.Duration) (*Client, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(passportABI))
	if err != nil {
		return nil, fmt.Errorf("parsing passport abi: %w", err)
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ledger rpc: %w", err)
	}
	return &Client{
		client:     client,
		contract:   common.HexToAddress(contractAddress),
		abi:        parsed,
		network:    network,
		rpcTimeout: rpcTimeout,
	}, nil
}

// Network returns the tag authorized accounts on this ledger carry
func (c *Client) Network() string {
	return c.network
}

// FindTokenBySubjectHash resolves the token registered under the subject id
// hash. Nil without error means no token is registered.
func (c *Client) FindTokenBySubjectHash(ctx context.Context, subjectHash [32]byte) (*big.Int, error) {
	out, err := c.call(ctx, "findTokenBySubjectId", subjectHash)
	if err != nil {
		return nil, err
	}
	tokenID, ok1 := out[0].(*big.Int)
	exists, ok2 := out[1].(bool)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unexpected findTokenBySubjectId output")
	}
	if !exists {
		return nil, nil
	}
	return tokenID, nil
}

// PassportIssuer returns the ledger account that issued the passport
func (c *Client) PassportIssuer(ctx context.Context, tokenID *big.Int) (string, error) {
	out, err := c.call(ctx, "passportIssuer", tokenID)
	if err != nil {
		return "", err
	}
	issuer, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected passportIssuer output")
	}
	return issuer.Hex(), nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s call: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s result: %w", method, err)
	}
	return out, nil
}
