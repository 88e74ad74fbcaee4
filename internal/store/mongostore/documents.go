package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tripledger/pkg/models"
)

// money stores a decimal as BSON Decimal128. Documents written by older
// clients hold plain doubles or integers; those are read back as decimals.
type money struct {
	decimal.Decimal
}

func (m money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(m.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s as decimal128: %w", m.Decimal.String(), err)
	}
	return bson.MarshalValue(d)
}

func (m *money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(rv.Decimal128().String())
		if err != nil {
			return fmt.Errorf("decode decimal128: %w", err)
		}
		m.Decimal = d
	case bsontype.Double:
		m.Decimal = decimal.NewFromFloat(rv.Double())
	case bsontype.Int32:
		m.Decimal = decimal.NewFromInt32(rv.Int32())
	case bsontype.Int64:
		m.Decimal = decimal.NewFromInt(rv.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(rv.StringValue())
		if err != nil {
			return fmt.Errorf("decode money string: %w", err)
		}
		m.Decimal = d
	case bsontype.Null, bsontype.Undefined:
		m.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s as money", t)
	}
	return nil
}

type recordDoc struct {
	ID                  string    `bson:"id"`
	TripID              string    `bson:"trip_id"`
	PracticeNumber      string    `bson:"practice_number"`
	BookingNumber       string    `bson:"booking_number"`
	GrossAmount         money     `bson:"gross_amount"`
	NetAmount           money     `bson:"net_amount"`
	Discount            money     `bson:"discount"`
	ConfirmationDeposit money     `bson:"confirmation_deposit"`
	GrossCommission     money     `bson:"gross_commission"`
	SupplierCommission  money     `bson:"supplier_commission"`
	AgentCommission     money     `bson:"agent_commission"`
	BalanceDue          money     `bson:"balance_due"`
	PracticeConfirmDate time.Time `bson:"practice_confirm_date"`
	ClientDepartureDate time.Time `bson:"client_departure_date"`
	Status              string    `bson:"status"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
	UpdatedBy           string    `bson:"updated_by,omitempty"`
}

func toRecordDoc(r *models.FinancialRecord) recordDoc {
	return recordDoc{
		ID:                  r.ID,
		TripID:              r.TripID,
		PracticeNumber:      r.PracticeNumber,
		BookingNumber:       r.BookingNumber,
		GrossAmount:         money{r.GrossAmount},
		NetAmount:           money{r.NetAmount},
		Discount:            money{r.Discount},
		ConfirmationDeposit: money{r.ConfirmationDeposit},
		GrossCommission:     money{r.GrossCommission},
		SupplierCommission:  money{r.SupplierCommission},
		AgentCommission:     money{r.AgentCommission},
		BalanceDue:          money{r.BalanceDue},
		PracticeConfirmDate: r.PracticeConfirmDate,
		ClientDepartureDate: r.ClientDepartureDate,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		UpdatedBy:           r.UpdatedBy,
	}
}

func (d recordDoc) model() *models.FinancialRecord {
	status := models.FinancialStatus(d.Status)
	if status == "" {
		status = models.FinancialStatusDraft
	}
	return &models.FinancialRecord{
		ID:                  d.ID,
		TripID:              d.TripID,
		PracticeNumber:      d.PracticeNumber,
		BookingNumber:       d.BookingNumber,
		GrossAmount:         d.GrossAmount.Decimal,
		NetAmount:           d.NetAmount.Decimal,
		Discount:            d.Discount.Decimal,
		ConfirmationDeposit: d.ConfirmationDeposit.Decimal,
		GrossCommission:     d.GrossCommission.Decimal,
		SupplierCommission:  d.SupplierCommission.Decimal,
		AgentCommission:     d.AgentCommission.Decimal,
		BalanceDue:          d.BalanceDue.Decimal,
		PracticeConfirmDate: d.PracticeConfirmDate,
		ClientDepartureDate: d.ClientDepartureDate,
		Status:              status,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		UpdatedBy:           d.UpdatedBy,
	}
}

type installmentDoc struct {
	ID                string    `bson:"id"`
	FinancialRecordID string    `bson:"trip_admin_id"`
	Amount            money     `bson:"amount"`
	PaymentDate       time.Time `bson:"payment_date"`
	PaymentType       string    `bson:"payment_type"`
	Notes             string    `bson:"notes"`
	CreatedAt         time.Time `bson:"created_at"`
}

func toInstallmentDoc(i *models.PaymentInstallment) installmentDoc {
	return installmentDoc{
		ID:                i.ID,
		FinancialRecordID: i.FinancialRecordID,
		Amount:            money{i.Amount},
		PaymentDate:       i.PaymentDate,
		PaymentType:       string(i.PaymentType),
		Notes:             i.Notes,
		CreatedAt:         i.CreatedAt,
	}
}

func (d installmentDoc) model() *models.PaymentInstallment {
	pt := models.PaymentType(d.PaymentType)
	if pt == "" {
		pt = models.PaymentTypeInstallment
	}
	return &models.PaymentInstallment{
		ID:                d.ID,
		FinancialRecordID: d.FinancialRecordID,
		Amount:            d.Amount.Decimal,
		PaymentDate:       d.PaymentDate,
		PaymentType:       pt,
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt,
	}
}

// refDoc is the projection used by the referential scans.
type refDoc struct {
	ID                string `bson:"id"`
	TripID            string `bson:"trip_id"`
	FinancialRecordID string `bson:"trip_admin_id"`
}

var (
	childRefProjection       = bson.D{{Key: "_id", Value: 0}, {Key: "id", Value: 1}, {Key: "trip_id", Value: 1}}
	installmentRefProjection = bson.D{{Key: "_id", Value: 0}, {Key: "id", Value: 1}, {Key: "trip_admin_id", Value: 1}}
)
