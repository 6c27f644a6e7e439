package models

import (
	"context"
	"fmt"
	"math/big"

	c1 "github.com/ThinkiumGroup/go-cipher"
	"github.com/ThinkiumGroup/go-common"
	"github.com/ThinkiumGroup/go-common/log"
	"github.com/ThinkiumGroup/go-ecrypto/sha3"
	"github.com/sirupsen/logrus"
)

var (
	ErrDecoupledKeyring = fmt.Errorf("%w: ethereum transactions cannot be signed with a decoupled keyring", ErrPolicy)
	ErrSenderMismatch   = fmt.Errorf("%w: the from address of the transaction is different with the address of the keyring", ErrPolicy)
	ErrChainIDMismatch  = fmt.Errorf("%w: chain id of signature is not matched", ErrPolicy)
	ErrInvalidTypedV    = fmt.Errorf("%w: the v value must be 0 or 1", ErrPolicy)
	ErrNoChainReader    = fmt.Errorf("%w: cannot fill nonce or chainId without a chain reader", ErrConfiguration)
	ErrInvalidPubKey    = fmt.Errorf("%w: invalid public key", ErrPolicy)
)

// Keyring produces signatures for one account. Its keys are grouped by Role, a
// keyring with a single key answers every role with it.
type Keyring interface {
	// Address returns the account address the keyring signs for.
	Address() common.Address
	// IsDecoupled reports whether the keys are not derived from the address, in which
	// case the keyring cannot sign ethereum transactions.
	IsDecoupled() bool
	// Sign signs hash with every key of role, v follows EIP-155 for chainID.
	Sign(hash []byte, chainID *big.Int, role Role) ([]SignatureData, error)
	// SignAt signs hash with the index-th key of role.
	SignAt(hash []byte, chainID *big.Int, role Role, index int) (SignatureData, error)
	// ECSign is Sign with v being the recovery parity (0 or 1).
	ECSign(hash []byte, role Role) ([]SignatureData, error)
	// ECSignAt is SignAt with v being the recovery parity (0 or 1).
	ECSignAt(hash []byte, role Role, index int) (SignatureData, error)
}

// ChainReader resolves the values a transaction needs from the network.
type ChainReader interface {
	PendingNonce(ctx context.Context, addr common.Address) (Quantity, error)
	ChainID(ctx context.Context) (Quantity, error)
}

// Hasher computes the hash to be signed, (*Transaction).SigHash by default.
type Hasher func(tx *Transaction) (common.Hash, error)

type signOptions struct {
	reader ChainReader
	hasher Hasher
	logger logrus.FieldLogger
}

type SignOption func(*signOptions)

// WithChainReader sets the reader used to fill a missing nonce or chain id.
func WithChainReader(r ChainReader) SignOption {
	return func(o *signOptions) { o.reader = r }
}

// WithHasher replaces the default sign hash.
func WithHasher(h Hasher) SignOption {
	return func(o *signOptions) { o.hasher = h }
}

func WithLogger(l logrus.FieldLogger) SignOption {
	return func(o *signOptions) { o.logger = l }
}

func newSignOptions(opts []SignOption) *signOptions {
	o := &signOptions{
		hasher: (*Transaction).SigHash,
		logger: log.WithField("L", "TXSIGN"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sign signs tx with every key the keyring holds for the role of the transaction
// type, and returns the transaction with the signatures appended.
//
// The sender is adopted from the keyring if tx has none, and nonce and chain id
// are filled by the chain reader if unset. tx itself is never modified: when an
// error occurs after one of these steps, the transaction reached so far is returned
// together with the error.
func Sign(ctx context.Context, tx *Transaction, kr Keyring, opts ...SignOption) (*Transaction, error) {
	return sign(ctx, tx, kr, -1, newSignOptions(opts))
}

// SignWithIndex is like Sign but only the index-th key of the role signs.
func SignWithIndex(ctx context.Context, tx *Transaction, kr Keyring, index int, opts ...SignOption) (*Transaction, error) {
	if index < 0 {
		return tx, validationErr("invalid key index %d", index)
	}
	return sign(ctx, tx, kr, index, newSignOptions(opts))
}

func sign(ctx context.Context, tx *Transaction, kr Keyring, index int, o *signOptions) (*Transaction, error) {
	if tx == nil || kr == nil {
		return tx, validationErr("nil transaction or keyring")
	}
	t := tx.Type()
	if t.IsEthereum() && kr.IsDecoupled() {
		return tx, fmt.Errorf("%w: %s", ErrDecoupledKeyring, t)
	}
	cur := tx
	if !cur.HasFrom() {
		cur = cur.withFromAddress(kr.Address())
	}
	if cur.from != kr.Address() {
		return cur, fmt.Errorf("%w: from %s keyring %s", ErrSenderMismatch, AddressString(cur.from), AddressString(kr.Address()))
	}
	cur, err := FillTransaction(ctx, cur, o.reader)
	if err != nil {
		return cur, err
	}
	hash, err := o.hasher(cur)
	if err != nil {
		return cur, err
	}
	role := t.Role()
	var sigs []SignatureData
	if t.IsEthereumTyped() {
		if index < 0 {
			sigs, err = kr.ECSign(hash[:], role)
		} else {
			var sig SignatureData
			sig, err = kr.ECSignAt(hash[:], role, index)
			sigs = []SignatureData{sig}
		}
	} else {
		chainID := cur.chainID.Big()
		if index < 0 {
			sigs, err = kr.Sign(hash[:], chainID, role)
		} else {
			var sig SignatureData
			sig, err = kr.SignAt(hash[:], chainID, role, index)
			sigs = []SignatureData{sig}
		}
	}
	if err != nil {
		return cur, err
	}
	signed, err := cur.AppendSignatures(sigs...)
	if err != nil {
		return cur, err
	}
	if o.logger != nil {
		o.logger.Debugf("%s signed by %s with %s, %d signature(s) attached", t, AddressString(cur.from), role, len(signed.sigs))
	}
	return signed, nil
}

// FillTransaction resolves an unset nonce (pending nonce of the sender) and chain
// id through reader. Without a reader, or when a value stays unset, it fails with a
// configuration error. The transaction reached so far is returned with the error.
func FillTransaction(ctx context.Context, tx *Transaction, reader ChainReader) (*Transaction, error) {
	cur := tx
	if reader != nil {
		if cur.nonce.IsUnset() {
			nonce, err := reader.PendingNonce(ctx, cur.from)
			if err != nil {
				return cur, fmt.Errorf("get pending nonce of %s: %w", AddressString(cur.from), err)
			}
			next, err := cur.WithNonce(nonce.String())
			if err != nil {
				return cur, err
			}
			cur = next
		}
		if cur.chainID.IsUnset() {
			chainID, err := reader.ChainID(ctx)
			if err != nil {
				return cur, fmt.Errorf("get chain id: %w", err)
			}
			next, err := cur.WithChainID(chainID.String())
			if err != nil {
				return cur, err
			}
			cur = next
		}
	}
	if cur.nonce.IsUnset() || cur.chainID.IsUnset() {
		return cur, ErrNoChainReader
	}
	return cur, nil
}

// Recovered is the result of RecoverPublicKeys. For ethereum legacy and native
// transactions without a chain id, ChainID is the one carried by the first
// signature and Tx is the transaction with it set.
type Recovered struct {
	PublicKeys [][]byte // uncompressed 65 byte keys, in signature order
	ChainID    *big.Int
	Tx         *Transaction
}

// RecoverPublicKeys recovers the public key of every signature of tx.
func RecoverPublicKeys(tx *Transaction) (*Recovered, error) {
	if tx.sigs.IsEmpty() {
		return nil, ErrEmptySignature
	}
	if tx.Type().IsEthereumTyped() {
		return recoverTyped(tx)
	}
	cur := tx
	if cur.chainID.IsUnset() {
		adopted, err := cur.WithChainID(QuantityFromBig(cur.sigs[0].ChainID()).String())
		if err != nil {
			return nil, err
		}
		cur = adopted
	}
	hash, err := cur.SigHash()
	if err != nil {
		return nil, err
	}
	chainID := cur.chainID.Big()
	pubs := make([][]byte, 0, len(cur.sigs))
	for i, sig := range cur.sigs {
		if sig.ChainID().Cmp(chainID) != 0 {
			return nil, fmt.Errorf("%w: signature %d has %s, transaction has %s", ErrChainIDMismatch, i, sig.ChainID(), chainID)
		}
		v, r, s := sig.RawSignatureValues()
		_, pub, _, err := recoverPlain(hash, r, s, recoverV(v, chainID), true)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return &Recovered{PublicKeys: pubs, ChainID: chainID, Tx: cur}, nil
}

func recoverTyped(tx *Transaction) (*Recovered, error) {
	hash, err := tx.SigHash()
	if err != nil {
		return nil, err
	}
	pubs := make([][]byte, 0, len(tx.sigs))
	for _, sig := range tx.sigs {
		v, r, s := sig.RawSignatureValues()
		if v.Cmp(big.NewInt(1)) > 0 {
			return nil, fmt.Errorf("%w: got %s", ErrInvalidTypedV, v)
		}
		_, pub, _, err := recoverPlain(hash, r, s, new(big.Int).Add(v, big.NewInt(27)), true)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return &Recovered{PublicKeys: pubs, ChainID: tx.chainID.Big(), Tx: tx}, nil
}

// RecoverAddresses recovers the signer address of every signature of tx.
func RecoverAddresses(tx *Transaction) ([]common.Address, error) {
	rec, err := RecoverPublicKeys(tx)
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, len(rec.PublicKeys))
	for i, pub := range rec.PublicKeys {
		addr, err := PublicKeyToAddress(pub)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// PublicKeyToAddress derives the account address of an uncompressed public key.
func PublicKeyToAddress(pub []byte) (common.Address, error) {
	if len(pub) != 65 || pub[0] != 4 {
		return common.Address{}, ErrInvalidPubKey
	}
	return common.BytesToAddress(keccak256Hash(pub[1:]).Bytes()[12:]), nil
}

// EncodeV returns the EIP-155 v of a recovery parity for chainID.
func EncodeV(parity byte, chainID *big.Int) *big.Int {
	if chainID == nil || chainID.Sign() == 0 {
		return big.NewInt(int64(parity) + 27)
	}
	v := new(big.Int).Mul(chainID, big.NewInt(2))
	return v.Add(v, big.NewInt(int64(parity)+35))
}

func recoverPlain(sighash common.Hash, R, S, Vb *big.Int, homestead bool) (sig, pub []byte, addr common.Address, err error) {
	if Vb.BitLen() > 8 || Vb.Uint64() < 27 {
		return nil, nil, common.Address{}, ErrInvalidSig
	}
	V := byte(Vb.Uint64() - 27)
	if !sha3.ValidateSignatureValues(V, R, S, homestead) {
		return nil, nil, common.Address{}, ErrInvalidSig
	}
	// encode the signature in uncompressed format
	r, s := R.Bytes(), S.Bytes()
	sig = make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = V
	// recover the public key from the signature
	pub, err = c1.Ecrecover(sighash[:], sig)
	if err != nil {
		return nil, nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
	}
	addr, err = PublicKeyToAddress(pub)
	if err != nil {
		return nil, nil, common.Address{}, err
	}
	return sig, pub, addr, nil
}

// deriveChainId derives the chain id from an EIP-155 v, 0 for unprotected values.
func deriveChainId(v *big.Int) *big.Int {
	if v.BitLen() <= 64 {
		v := v.Uint64()
		if v < 35 {
			return new(big.Int)
		}
		return new(big.Int).SetUint64((v - 35) / 2)
	}
	v = new(big.Int).Sub(v, big.NewInt(35))
	return v.Div(v, big.NewInt(2))
}

// recoverV turns an EIP-155 v into 27 or 28.
func recoverV(v *big.Int, chainId *big.Int) *big.Int {
	if v.BitLen() <= 8 && (v.Uint64() == 27 || v.Uint64() == 28) {
		return new(big.Int).Set(v)
	}
	chainIdMul := new(big.Int).Mul(chainId, big.NewInt(2))
	vv := new(big.Int).Sub(v, chainIdMul)
	return vv.Sub(vv, big.NewInt(8))
}
