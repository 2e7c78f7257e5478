package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/domain/claim"
	noncemodels "goal-auth-bridge/internal/features/nonce/models"
	noncerepo "goal-auth-bridge/internal/features/nonce/repository"
	nonceservice "goal-auth-bridge/internal/features/nonce/service"
	"goal-auth-bridge/internal/features/wallet/models"
)

// Service issues wallet nonces and verifies Sign-In with Ethereum messages.
type Service struct {
	nonces *nonceservice.Service
	ttl    time.Duration
	domain string
}

// NewService returns a verifier. A non-empty domain pins the SIWE header
// domain.
func NewService(nonces *nonceservice.Service, ttl time.Duration, domain string) *Service {
	return &Service{nonces: nonces, ttl: ttl, domain: domain}
}

func (s *Service) IssueNonce(ctx context.Context) (*models.NonceResponse, error) {
	n, err := s.nonces.Issue(ctx, noncemodels.KindWallet, s.ttl)
	if err != nil {
		return nil, apperrors.NewDatabaseError("create wallet nonce", err)
	}
	return &models.NonceResponse{Nonce: n.Value, ExpiresAt: n.ExpiresAt}, nil
}

// Verify recovers the signer of a SIWE message, checks it against the
// claimed address and consumes the nonce.
func (s *Service) Verify(ctx context.Context, proof claim.Proof) (*claim.ExternalClaim, error) {
	p, ok := proof.(*models.Proof)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "Unexpected proof type")
	}
	if !common.IsHexAddress(p.Address) {
		return nil, apperrors.NewBadRequestError("address", "not a hex address")
	}

	msg, err := ParseSiwe(p.Message)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Malformed sign-in message")
	}

	n, err := s.nonces.Get(ctx, msg.Nonce)
	if errors.Is(err, noncerepo.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "Nonce not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get wallet nonce", err)
	}

	now := s.nonces.Now()
	switch {
	case n.Kind != noncemodels.KindWallet:
		return nil, apperrors.New(apperrors.ErrCodeRevoked, "Nonce was not issued for wallet login")
	case n.Expired(now):
		return nil, apperrors.New(apperrors.ErrCodeExpired, "Nonce expired")
	case n.Used:
		return nil, apperrors.New(apperrors.ErrCodeAlreadyUsed, "Nonce already used")
	case msg.ExpirationTime != nil && !now.Before(*msg.ExpirationTime):
		return nil, apperrors.New(apperrors.ErrCodeExpired, "Sign-in message expired")
	case msg.NotBefore != nil && now.Before(*msg.NotBefore):
		return nil, apperrors.NewBadRequestError("message", "not valid yet")
	case s.domain != "" && !strings.EqualFold(msg.Domain, s.domain):
		return nil, apperrors.NewBadRequestError("message", "domain mismatch")
	}

	recovered, err := RecoverAddress(p.Message, p.Signature)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSignatureRecoverFailed, "Failed to recover signer")
	}

	claimed := common.HexToAddress(p.Address)
	if recovered != claimed {
		logger.Warn().Str("claimed", claimed.Hex()).Str("recovered", recovered.Hex()).Msg("Wallet address mismatch")
		return nil, apperrors.New(apperrors.ErrCodeAddressMismatch, "Signature does not match address")
	}
	if msg.Address != "" && (!common.IsHexAddress(msg.Address) || common.HexToAddress(msg.Address) != recovered) {
		return nil, apperrors.New(apperrors.ErrCodeAddressMismatch, "Message address does not match signer")
	}

	if err := s.nonces.Use(ctx, noncemodels.KindWallet, msg.Nonce, recovered.Hex()); err != nil {
		switch {
		case errors.Is(err, noncerepo.ErrAlreadyUsed):
			return nil, apperrors.New(apperrors.ErrCodeAlreadyUsed, "Nonce already used")
		case errors.Is(err, noncerepo.ErrExpired):
			return nil, apperrors.New(apperrors.ErrCodeExpired, "Nonce expired")
		case errors.Is(err, noncerepo.ErrNotFound):
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "Nonce not found")
		default:
			return nil, apperrors.NewDatabaseError("use wallet nonce", err)
		}
	}

	return &claim.ExternalClaim{
		Channel:    claim.ChannelWallet,
		ExternalID: recovered.Hex(),
		Proof: map[string]string{
			"domain":   msg.Domain,
			"chain_id": strconv.FormatInt(msg.ChainID, 10),
		},
	}, nil
}

// RecoverAddress returns the signer of an EIP-191 personal message. The
// recovery id may be 0/1 or 27/28.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, err
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, errors.New("invalid recovery id")
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
