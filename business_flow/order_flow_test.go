package businessflow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var followers = services.SMMService{
	ID: 101, Name: "Instagram Followers", Type: "Default", Category: "Instagram",
	Rate: dec("200"), Min: 100, Max: 10000,
}

func TestOrderFlow_CreateSMMOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil)
		h.smm.EXPECT().AddOrder(gomock.Any(), 101, "https://instagram.com/p/x", 500).Return("98765", nil)

		order, err := h.orders.CreateSMMOrder(ctx, &dto.CreateSMMOrderRequest{
			UserID: user.ID, ServiceID: 101, Link: "https://instagram.com/p/x", Quantity: 500,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "100.00", order.Charge)
		assert.Equal(t, "98765", order.ProviderOrderID)
		assert.Equal(t, string(models.OrderStatusPending), order.Status)
		assert.Equal(t, 500, order.Remains)
		assert.Equal(t, "900.00", balanceOf(h, user.ID))

		list, err := h.orders.ListSMMOrders(ctx, &dto.ListOrdersRequest{UserID: user.ID})
		require.NoError(t, err)
		assert.Len(t, list.Items, 1)
	})

	t.Run("ProviderFailureRollsBackDebit", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil)
		h.smm.EXPECT().AddOrder(gomock.Any(), 101, gomock.Any(), 500).Return("", errors.New("not enough funds on balance"))

		_, err := h.orders.CreateSMMOrder(ctx, &dto.CreateSMMOrderRequest{
			UserID: user.ID, ServiceID: 101, Link: "https://instagram.com/p/x", Quantity: 500,
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrOrderProviderFailed)
		assert.Equal(t, "1000.00", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllSMMOrders())
	})

	t.Run("InsufficientFundsSkipsProvider", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "99.99")
		h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil)

		_, err := h.orders.CreateSMMOrder(ctx, &dto.CreateSMMOrderRequest{
			UserID: user.ID, ServiceID: 101, Link: "https://instagram.com/p/x", Quantity: 500,
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInsufficientFunds)
		assert.Empty(t, h.store.AllSMMOrders())
	})

	t.Run("QuantityOutOfRange", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil).Times(2)

		for _, qty := range []int{99, 10001} {
			_, err := h.orders.CreateSMMOrder(ctx, &dto.CreateSMMOrderRequest{
				UserID: user.ID, ServiceID: 101, Link: "https://instagram.com/p/x", Quantity: qty,
			}, nil)
			assert.ErrorIs(t, err, businessflow.ErrQuantityOutOfRange)
		}
	})

	t.Run("UnknownService", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil)

		_, err := h.orders.CreateSMMOrder(ctx, &dto.CreateSMMOrderRequest{
			UserID: user.ID, ServiceID: 7, Link: "https://instagram.com/p/x", Quantity: 500,
		}, nil)
		assert.ErrorIs(t, err, businessflow.ErrServiceNotFound)
	})
}

func TestOrderFlow_SMMServicesPricedForUser(t *testing.T) {
	h := newHarness(t)
	user := h.fixtures.CreateUser("USD", "0")
	h.smm.EXPECT().Services(gomock.Any()).Return([]services.SMMService{followers}, nil)
	h.rates.EXPECT().Convert(gomock.Any(), gomock.Any(), "NGN", "USD").Return(dec("0.13"), nil)

	list, err := h.orders.SMMServices(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0.13", list[0].Rate)
	assert.Equal(t, "USD", list[0].Currency)
}

func TestOrderFlow_CreateSMSOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesMarkup", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.sms.EXPECT().Purchase(gomock.Any(), "whatsapp", "NG").
			Return(&services.SMSPurchase{OrderCode: "A1B2", PhoneNumber: "+2348011111111", Cost: dec("150")}, nil)

		order, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "whatsapp", Country: "NG"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "300.00", order.Amount)
		assert.Equal(t, "A1B2", order.OrderCode)
		assert.Equal(t, "700.00", balanceOf(h, user.ID))

		list, err := h.orders.ListSMSOrders(ctx, &dto.ListOrdersRequest{UserID: user.ID})
		require.NoError(t, err)
		assert.Len(t, list.Items, 1)
	})

	t.Run("EmptyBalanceRefusedBeforeProvider", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0")

		_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "whatsapp", Country: "NG"}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInsufficientFunds)
	})

	t.Run("PriceAboveBalance", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "100")
		h.sms.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&services.SMSPurchase{OrderCode: "C3D4", Cost: dec("60")}, nil)

		h.sms.EXPECT().Cancel(gomock.Any(), "C3D4").Return(nil)

		_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "telegram", Country: "NG"}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInsufficientFunds)
		assert.Equal(t, "100.00", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllSMSOrders())
	})

	t.Run("EveryUnchargedRentalIsCancelled", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "0.01")
		for i := 0; i < 5; i++ {
			code := fmt.Sprintf("R%d", i)
			h.sms.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(&services.SMSPurchase{OrderCode: code, Cost: dec("60")}, nil)
			h.sms.EXPECT().Cancel(gomock.Any(), code).Return(nil)
		}

		for i := 0; i < 5; i++ {
			_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "telegram", Country: "NG"}, nil)
			assert.ErrorIs(t, err, businessflow.ErrInsufficientFunds)
		}
		assert.Equal(t, "0.01", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllSMSOrders())
	})

	t.Run("FreeRentalRefused", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "10")
		h.sms.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&services.SMSPurchase{OrderCode: "Z0"}, nil)
		h.sms.EXPECT().Cancel(gomock.Any(), "Z0").Return(nil)

		_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "telegram", Country: "NG"}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidAmount)
		assert.Equal(t, "10.00", balanceOf(h, user.ID))
		assert.Empty(t, h.store.AllSMSOrders())
	})

	t.Run("RecordFailureCancelsAndKeepsBalance", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "1000")
		h.store.FailSave = func(table string) error {
			if table == "sms_orders" {
				return errors.New("disk full")
			}
			return nil
		}
		h.sms.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&services.SMSPurchase{OrderCode: "E5", Cost: dec("100")}, nil)
		h.sms.EXPECT().Cancel(gomock.Any(), "E5").Return(errors.New("provider down"))

		_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "telegram", Country: "NG"}, nil)
		require.Error(t, err)
		assert.Equal(t, "1000.00", balanceOf(h, user.ID))
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		h := newHarness(t)
		user := h.fixtures.CreateUser("NGN", "100")
		h.sms.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("no numbers"))

		_, err := h.orders.CreateSMSOrder(ctx, &dto.CreateSMSOrderRequest{UserID: user.ID, Service: "telegram", Country: "NG"}, nil)
		assert.ErrorIs(t, err, businessflow.ErrOrderProviderFailed)
		assert.Equal(t, "100.00", balanceOf(h, user.ID))
	})
}

func TestOrderFlow_Products(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	buyer := h.fixtures.CreateUser("NGN", "5000")
	late := h.fixtures.CreateUser("NGN", "5000")
	product := h.fixtures.CreateProduct("instagram", "3500")
	h.fixtures.CreateProduct("tiktok", "100")

	list, err := h.orders.ListProducts(ctx, &dto.ListProductsRequest{Platform: "instagram"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, product.ID, list.Items[0].ID)

	resp, err := h.orders.PurchaseProduct(ctx, &dto.PurchaseProductRequest{UserID: buyer.ID, ProductID: product.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, "login:secret", resp.Credentials)
	assert.Equal(t, "1500.00", resp.Balance)

	_, err = h.orders.PurchaseProduct(ctx, &dto.PurchaseProductRequest{UserID: late.ID, ProductID: product.ID}, nil)
	assert.ErrorIs(t, err, businessflow.ErrProductNotAvailable)
	assert.Equal(t, "5000.00", balanceOf(h, late.ID))

	_, err = h.orders.PurchaseProduct(ctx, &dto.PurchaseProductRequest{UserID: late.ID, ProductID: 4040}, nil)
	assert.ErrorIs(t, err, businessflow.ErrProductNotFound)

	list, err = h.orders.ListProducts(ctx, &dto.ListProductsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "tiktok", list.Items[0].Platform)
}
