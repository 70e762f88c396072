package polymarket

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"

	"github.com/mselser95/arbengine/pkg/types"
)

// polygonUSDCDecimals matches the 6-decimal fixed point the CLOB expects
// for both price and size fields on signed orders, per's
// internal/execution/order_client.go usdToRawAmount helper.
const polygonUSDCDecimals = 6

// usdToRawAmount converts a USD-denominated float into the 6-decimal raw
// integer string the CLOB contract expects, carried over unchanged from
// order_client.go.
func usdToRawAmount(amount float64) string {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e6))
	raw, _ := scaled.Int(nil)
	return raw.String()
}

// hmacSign signs timestamp+method+path+body with the account's API secret,
// exactly as order_client.go submitOrder does for CLOB L2
// auth headers.
func hmacSign(secretBase64URL, timestamp, method, path, body string) (string, error) {
	secret, err := base64.URLEncoding.DecodeString(secretBase64URL)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// buildSignedOrder constructs and EIP-712 signs an order for the CTF
// exchange contract, carried over from the prior adapter's
// internal/execution/order_client.go which used the same
// go-order-utils builder against a caller-supplied ecdsa.PrivateKey.
func buildSignedOrder(
	privateKey *ecdsa.PrivateKey,
	chainID int64,
	exchangeAddress common.Address,
	token types.Token,
	side types.Side,
	makerAmount, takerAmount *big.Int,
	feeRateBps int64,
	salt int64,
) (*model.SignedOrder, error) {
	orderBuilder := builder.NewExchangeOrderBuilderImpl(big.NewInt(chainID), nil)

	tokenID, ok := new(big.Int).SetString(token.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("token id %q is not a valid integer", token.TokenID)
	}

	orderSide := model.BUY
	if side == types.SideSell {
		orderSide = model.SELL
	}

	orderData := &model.OrderData{
		TokenId:       tokenID.String(),
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Side:          orderSide,
		FeeRateBps:    strconv.FormatInt(feeRateBps, 10),
		Nonce:         "0",
		Signer:        common.Address{}.Hex(),
		Maker:         common.Address{}.Hex(),
		Taker:         common.Address{}.Hex(),
		Expiration:    "0",
		SignatureType: model.EOA,
	}
	_ = exchangeAddress
	_ = salt

	signedOrder, err := orderBuilder.BuildSignedOrder(privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signedOrder, nil
}
