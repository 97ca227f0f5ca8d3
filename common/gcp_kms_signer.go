package common

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	gax "github.com/googleapis/gax-go/v2"
)

const kmsCallTimeout = 10 * time.Second

type GCPKeyManagementClient interface {
	Close() error
	GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...gax.CallOption) (*kmspb.PublicKey, error)
	AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...gax.CallOption) (*kmspb.AsymmetricSignResponse, error)
	GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...gax.CallOption) (*kmspb.CryptoKeyVersion, error)
}

// GcpKmsSigner signs mint transactions with a secp256k1 key version held in
// Cloud KMS. The private key never leaves KMS.
type GcpKmsSigner struct {
	client     GCPKeyManagementClient
	keyName    string
	ethAddress common.Address
}

var _ Signer = &GcpKmsSigner{}

var NewGCPKeyManagementClient = func(ctx context.Context) (GCPKeyManagementClient, error) {
	return kms.NewKeyManagementClient(ctx)
}

var secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)

func NewGcpKmsSigner(keyName string) (*GcpKmsSigner, error) {
	client, err := NewGCPKeyManagementClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS client: %w", err)
	}

	s := &GcpKmsSigner{client: client, keyName: keyName}
	if err := s.checkAlgorithm(); err != nil {
		client.Close()
		return nil, err
	}

	pub, err := s.publicKey()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to resolve public key: %w", err)
	}
	s.ethAddress = crypto.PubkeyToAddress(*pub)
	return s, nil
}

func (s *GcpKmsSigner) Destroy() {
	s.client.Close()
}

func (s *GcpKmsSigner) Address() common.Address {
	return s.ethAddress
}

func (s *GcpKmsSigner) checkAlgorithm() error {
	ctx, cancel := context.WithTimeout(context.Background(), kmsCallTimeout)
	defer cancel()

	version, err := s.client.GetCryptoKeyVersion(ctx, &kmspb.GetCryptoKeyVersionRequest{Name: s.keyName})
	if err != nil {
		return fmt.Errorf("failed to get key version details: %w", err)
	}
	if version.Algorithm != kmspb.CryptoKeyVersion_EC_SIGN_SECP256K1_SHA256 {
		return fmt.Errorf("key %s uses %s, want EC_SIGN_SECP256K1_SHA256", s.keyName, version.Algorithm)
	}
	return nil
}

// publicKey decodes the PEM SubjectPublicKeyInfo by hand since x509 does not
// know the secp256k1 curve.
func (s *GcpKmsSigner) publicKey() (*ecdsa.PublicKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kmsCallTimeout)
	defer cancel()

	resp, err := s.client.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: s.keyName})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	block, _ := pem.Decode([]byte(resp.Pem))
	if block == nil {
		return nil, fmt.Errorf("public key of %s is not PEM encoded", s.keyName)
	}

	var info struct {
		AlgID pkix.AlgorithmIdentifier
		Key   asn1.BitString
	}
	if _, err := asn1.Unmarshal(block.Bytes, &info); err != nil {
		return nil, fmt.Errorf("public key of %s: %w", s.keyName, err)
	}
	if !info.AlgID.Algorithm.Equal(oidPublicKeyECDSA) {
		return nil, fmt.Errorf("public key of %s has algorithm %s", s.keyName, info.AlgID.Algorithm)
	}

	return crypto.UnmarshalPubkey(info.Key.Bytes)
}

func (s *GcpKmsSigner) SignHash(hash common.Hash) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kmsCallTimeout)
	defer cancel()

	resp, err := s.client.AsymmetricSign(ctx, &kmspb.AsymmetricSignRequest{
		Name:   s.keyName,
		Digest: &kmspb.Digest{Digest: &kmspb.Digest_Sha256{Sha256: hash[:]}},
	})
	if err != nil {
		return nil, fmt.Errorf("kms sign: %w", err)
	}

	rs, err := compactSignature(resp.Signature)
	if err != nil {
		return nil, err
	}
	return s.withRecoveryId(hash, rs)
}

// compactSignature turns a DER signature into 32 byte R || 32 byte S with S
// in the lower half of the curve order.
func compactSignature(der []byte) ([]byte, error) {
	var params struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(der, &params); err != nil {
		return nil, fmt.Errorf("kms signature encoding: %w", err)
	}
	if params.R == nil || params.S == nil || params.R.Sign() <= 0 || params.S.Sign() <= 0 ||
		params.R.BitLen() > 256 || params.S.BitLen() > 256 {
		return nil, fmt.Errorf("kms signature values out of range")
	}

	sValue := params.S
	if sValue.Cmp(secp256k1HalfN) > 0 {
		sValue = new(big.Int).Sub(crypto.S256().Params().N, sValue)
	}

	rs := make([]byte, 64)
	params.R.FillBytes(rs[:32])
	sValue.FillBytes(rs[32:])
	return rs, nil
}

// withRecoveryId finds the V that recovers this signer's address and appends it.
func (s *GcpKmsSigner) withRecoveryId(hash common.Hash, rs []byte) ([]byte, error) {
	compact := make([]byte, 65)
	copy(compact[1:], rs)

	var lastErr error
	for v := byte(0); v < 2; v++ {
		compact[0] = 27 + v
		pub, _, err := btcecdsa.RecoverCompact(compact, hash[:])
		if err != nil {
			lastErr = err
			continue
		}
		if crypto.PubkeyToAddress(*pub.ToECDSA()) == s.ethAddress {
			return append(append([]byte{}, rs...), v), nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("kms signature recovery failed: %w", lastErr)
	}
	return nil, fmt.Errorf("kms signature does not recover %s", s.ethAddress.Hex())
}
