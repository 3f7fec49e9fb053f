package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openbuilders/payment-gateway/internal/errors"
	"github.com/openbuilders/payment-gateway/internal/types"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

// reserveNano is kept on the wallet to cover fees of the external message.
const reserveNano = 3000000

type WalletConfig struct {
	Mnemonic   string
	IsTestnet  bool
	MessageTTL time.Duration
}

// Wallet submits transfer intents through a highload wallet. It is the only
// Submitter implementation; everything above it depends on the interface.
type Wallet struct {
	config  *WalletConfig
	client  ton.APIClientWrapped
	queryID *HighloadQueryID
	wallet  *wallet.Wallet
	mu      sync.Mutex
	log     *slog.Logger
}

func NewWallet(config *WalletConfig, client ton.APIClientWrapped,
	queryID *HighloadQueryID) *Wallet {
	return &Wallet{
		config:  config,
		client:  client,
		queryID: queryID,
		log:     slog.With("component", "wallet"),
	}
}

func (w *Wallet) Init() error {
	words := strings.Split(w.config.Mnemonic, " ")

	newWallet, err := wallet.FromSeed(w.client, words, wallet.ConfigHighloadV3{
		MessageTTL: uint32(w.config.MessageTTL.Seconds()),
		MessageBuilder: func(ctx context.Context, subWalletId uint32) (id uint32, createdAt int64, err error) {
			// Due to specific of externals emulation on liteserver,
			// we need to take something less than or equals to block time, as message creation time,
			// otherwise external message will be rejected, because time will be > than emulation time
			createdAt = time.Now().Unix() - 30

			return uint32(w.queryID.GetQueryID()), createdAt, nil
		},
	})
	if err != nil {
		return fmt.Errorf("couldn't create wallet from seed: %w", err)
	}

	w.wallet = newWallet
	return nil
}

func (w *Wallet) GetAddress() (*address.Address, error) {
	if w.wallet == nil {
		return nil, fmt.Errorf("wallet is not initialized")
	}

	return w.wallet.WalletAddress().Testnet(w.config.IsTestnet), nil
}

// Submit builds one internal message per recipient, wraps them into a single
// external message and sends it. The hex hash of the external message body is
// the chain transaction reference shared by all recipients.
func (w *Wallet) Submit(ctx context.Context, intent *TransferIntent) (string, error) {
	if intent.TokenKind != types.TokenTON {
		// TODO: jetton transfers need the gateway's jetton wallet address
		// to be resolved and configured first.
		return "", errors.New(errors.CodeSubmissionFailed,
			"token kind %q is not supported by this wallet", intent.TokenKind)
	}

	block, err := w.client.CurrentMasterchainInfo(ctx)
	if err != nil {
		return "", errors.Wrap(errors.CodeSubmissionFailed, err,
			"couldn't fetch master chain info")
	}

	balance, err := w.wallet.GetBalance(ctx, block)
	if err != nil {
		return "", errors.Wrap(errors.CodeSubmissionFailed, err,
			"couldn't fetch wallet balance")
	}

	totalNano := uint64(intent.Total().Shift(9).IntPart())
	if balance.Nano().Uint64() < reserveNano+totalNano {
		return "", errors.New(errors.CodeSubmissionFailed,
			"not enough balance for %d nano", totalNano)
	}

	var messages []*wallet.Message
	for _, recipient := range intent.Recipients {
		addr, err := address.ParseAddr(recipient.Address)
		if err != nil {
			return "", errors.Wrap(errors.CodeSubmissionFailed, err,
				"invalid recipient address %q", recipient.Address)
		}

		amount, err := tlb.FromTON(recipient.Amount.String())
		if err != nil {
			return "", errors.Wrap(errors.CodeSubmissionFailed, err,
				"invalid amount %q", recipient.Amount)
		}

		inMsg, err := w.wallet.BuildTransfer(addr, amount, addr.IsBounceable(),
			recipient.Comment)
		if err != nil {
			return "", errors.Wrap(errors.CodeSubmissionFailed, err,
				"couldn't build internal message")
		}

		messages = append(messages, inMsg)
	}

	extMsg, err := w.wallet.BuildExternalMessageForMany(ctx, messages)
	if err != nil {
		return "", errors.Wrap(errors.CodeSubmissionFailed, err,
			"couldn't build external message")
	}

	w.mu.Lock()

	if !w.queryID.HasNext() {
		w.mu.Unlock()
		return "", errors.New(errors.CodeSubmissionFailed,
			"reached the limit of query id")
	}

	next, err := w.queryID.GetNext()
	if err != nil {
		w.mu.Unlock()
		return "", errors.Wrap(errors.CodeSubmissionFailed, err,
			"couldn't advance query id")
	}

	w.queryID = next

	w.mu.Unlock()

	w.log.Debug("sending external message", "recipients", len(messages))

	err = w.client.SendExternalMessage(ctx, extMsg)
	if err != nil {
		return "", errors.Wrap(errors.CodeSubmissionFailed, err,
			"couldn't send external message")
	}

	body := extMsg.Payload()
	if body == nil {
		return "", errors.New(errors.CodeSubmissionFailed,
			"nil body for external message")
	}

	hash := body.Hash()
	return hex.EncodeToString(hash), nil
}
