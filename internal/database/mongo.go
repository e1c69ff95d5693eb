package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection    = "orders"
	feesCollection      = "fees"
	hotelsCollection    = "hotels"
	customersCollection = "customers"
)

// MongoStore keeps orders as documents with items and payments embedded.
type MongoStore struct {
	client    *mongo.Client
	orders    *mongo.Collection
	fees      *mongo.Collection
	hotels    *mongo.Collection
	customers *mongo.Collection
}

// NewMongoStore connects, pings and ensures the indexes the queries rely on.
func NewMongoStore(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetConnectTimeout(timeout).SetTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:    client,
		orders:    db.Collection(ordersCollection),
		fees:      db.Collection(feesCollection),
		hotels:    db.Collection(hotelsCollection),
		customers: db.Collection(customersCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "hotelId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	// The unique (hotel, day) key is what makes concurrent first accruals
	// collapse into one document.
	_, err = s.fees.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "hotel", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create fee index: %w", err)
	}
	return nil
}

// --- Documents ---

type orderDoc struct {
	ID         string               `bson:"_id"`
	Status     string               `bson:"status"`
	HotelID    string               `bson:"hotelId"`
	CustomerID string               `bson:"customerId,omitempty"`
	ServedBy   string               `bson:"servedBy,omitempty"`
	Items      []itemDoc            `bson:"items"`
	Payments   []paymentDoc         `bson:"payments"`
	TotalItems int                  `bson:"totalItems"`
	TotalPrice primitive.Decimal128 `bson:"totalPrice"`
	TotalBill  primitive.Decimal128 `bson:"totalBill"`
	CreatedAt  time.Time            `bson:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt"`
	Revision   int64                `bson:"revision"`
}

type itemDoc struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	ProductID string               `bson:"product,omitempty"`
	Qty       int                  `bson:"qty"`
	Price     primitive.Decimal128 `bson:"price"`
	Status    string               `bson:"status"`
}

type paymentDoc struct {
	ID              string               `bson:"_id"`
	Method          string               `bson:"method"`
	Amount          primitive.Decimal128 `bson:"amount"`
	TransactionCode string               `bson:"transactionCode"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

type feeDoc struct {
	HotelID        string               `bson:"hotel"`
	Day            string               `bson:"day"`
	Total          primitive.Decimal128 `bson:"total"`
	NumberOfOrders int                  `bson:"numberOfOrders"`
	OrderIDs       []string             `bson:"ordersId"`
}

type hotelDoc struct {
	ID           interface{} `bson:"_id"`
	BusinessName string      `bson:"businessName"`
	FCMToken     string      `bson:"FCMToken"`
}

type customerDoc struct {
	ID       interface{} `bson:"_id"`
	FullName string      `bson:"fullName"`
	FCMToken string      `bson:"FCMToken"`
}

func toOrderDoc(o Order) orderDoc {
	d := orderDoc{
		ID:         o.ID,
		Status:     string(o.Status),
		HotelID:    o.HotelID,
		CustomerID: o.CustomerID,
		ServedBy:   o.ServedBy,
		Items:      make([]itemDoc, len(o.Items)),
		Payments:   make([]paymentDoc, len(o.Payments)),
		TotalItems: o.TotalItems,
		TotalPrice: toDecimal128(o.TotalPrice),
		TotalBill:  toDecimal128(o.TotalBill),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		Revision:   o.Revision,
	}
	for i, it := range o.Items {
		d.Items[i] = itemDoc{
			ID:        it.ID,
			Name:      it.Name,
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     toDecimal128(it.Price),
			Status:    string(it.Status),
		}
	}
	for i, p := range o.Payments {
		d.Payments[i] = paymentDoc{
			ID:              p.ID,
			Method:          p.Method,
			Amount:          toDecimal128(p.Amount),
			TransactionCode: p.TransactionCode,
			CreatedAt:       p.CreatedAt,
		}
	}
	return d
}

func (d orderDoc) toOrder() Order {
	o := Order{
		ID:         d.ID,
		Status:     enum.OrderStatus(d.Status),
		HotelID:    d.HotelID,
		CustomerID: d.CustomerID,
		ServedBy:   d.ServedBy,
		Items:      make([]OrderItem, len(d.Items)),
		Payments:   make([]OrderPayment, len(d.Payments)),
		TotalItems: d.TotalItems,
		TotalPrice: fromDecimal128(d.TotalPrice),
		TotalBill:  fromDecimal128(d.TotalBill),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		Revision:   d.Revision,
	}
	for i, it := range d.Items {
		o.Items[i] = OrderItem{
			ID:        it.ID,
			Name:      it.Name,
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     fromDecimal128(it.Price),
			Status:    enum.ItemStatus(it.Status).OrDefault(),
		}
	}
	for i, p := range d.Payments {
		o.Payments[i] = OrderPayment{
			ID:              p.ID,
			Method:          p.Method,
			Amount:          fromDecimal128(p.Amount),
			TransactionCode: p.TransactionCode,
			CreatedAt:       p.CreatedAt,
		}
	}
	return o
}

func (d feeDoc) toFee() Fee {
	return Fee{
		HotelID:        d.HotelID,
		Day:            d.Day,
		Total:          fromDecimal128(d.Total),
		NumberOfOrders: d.NumberOfOrders,
		OrderIDs:       d.OrderIDs,
	}
}

// --- Orders ---

func (s *MongoStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if _, err := s.orders.InsertOne(ctx, toOrderDoc(o)); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (Order, error) {
	var d orderDoc
	if err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return Order{}, mongoErr("find order", err)
	}
	return d.toOrder(), nil
}

func (s *MongoStore) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	filter := bson.M{}
	if f.HotelID != "" {
		filter["hotelId"] = f.HotelID
	}
	if f.CustomerID != "" {
		filter["customerId"] = f.CustomerID
	}
	dir := -1
	if f.Sort == SortOldestFirst {
		dir = 1
	}
	cur, err := s.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: dir}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	out := []Order{}
	for cur.Next(ctx) {
		var d orderDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, d.toOrder())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ReplaceOrder(ctx context.Context, o Order) (Order, error) {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	// Documents written before revisions existed have no field; null
	// matches a missing one.
	rev := bson.M{"$eq": o.Revision}
	if o.Revision == 0 {
		rev = bson.M{"$in": bson.A{0, nil}}
	}
	next := o
	next.Revision++
	res, err := s.orders.ReplaceOne(ctx, bson.M{"_id": o.ID, "revision": rev}, toOrderDoc(next))
	if err != nil {
		return Order{}, fmt.Errorf("replace order: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.orders.CountDocuments(ctx, bson.M{"_id": o.ID})
		if err != nil {
			return Order{}, fmt.Errorf("count order: %w", err)
		}
		if n == 0 {
			return Order{}, ErrNotFound
		}
		return Order{}, ErrConflict
	}
	return next, nil
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id string, status enum.OrderStatus, at time.Time) (Order, error) {
	var d orderDoc
	err := s.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": at}, "$inc": bson.M{"revision": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return Order{}, mongoErr("update order status", err)
	}
	return d.toOrder(), nil
}

func (s *MongoStore) DeleteOrder(ctx context.Context, id string) (Order, error) {
	var d orderDoc
	if err := s.orders.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return Order{}, mongoErr("delete order", err)
	}
	return d.toOrder(), nil
}

func (s *MongoStore) SumOrders(ctx context.Context, hotelID string, from, to time.Time) (SalesTotals, error) {
	match := bson.M{"createdAt": bson.M{"$gte": from, "$lte": to}}
	if hotelID != "" {
		match["hotelId"] = hotelID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"totalItems": bson.M{"$sum": "$totalItems"},
			"totalPrice": bson.M{"$sum": "$totalPrice"},
		}}},
	}
	cur, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return SalesTotals{}, fmt.Errorf("aggregate orders: %w", err)
	}
	defer cur.Close(ctx)

	totals := SalesTotals{TotalPrice: decimal.Zero}
	if cur.Next(ctx) {
		var row struct {
			TotalItems int64                `bson:"totalItems"`
			TotalPrice primitive.Decimal128 `bson:"totalPrice"`
		}
		if err := cur.Decode(&row); err != nil {
			return SalesTotals{}, fmt.Errorf("decode totals: %w", err)
		}
		totals.TotalItems = row.TotalItems
		totals.TotalPrice = fromDecimal128(row.TotalPrice)
	}
	if err := cur.Err(); err != nil {
		return SalesTotals{}, fmt.Errorf("iterate totals: %w", err)
	}
	return totals, nil
}

// --- Fees ---

// AccrueFee adds amount to the (hotel, day) fee in one server-side upsert.
// Two first-of-the-day accruals racing on insert make one of them hit the
// unique index; that one is retried and lands as an update.
func (s *MongoStore) AccrueFee(ctx context.Context, hotelID, day, orderID string, amount decimal.Decimal) (Fee, error) {
	filter := bson.M{"hotel": hotelID, "day": day}
	update := bson.M{
		"$inc":         bson.M{"total": toDecimal128(amount), "numberOfOrders": 1},
		"$push":        bson.M{"ordersId": orderID},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var d feeDoc
		err := s.fees.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
		if err == nil {
			return d.toFee(), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return Fee{}, fmt.Errorf("accrue fee: %w", err)
		}
		lastErr = err
	}
	return Fee{}, fmt.Errorf("accrue fee: %w", lastErr)
}

func (s *MongoStore) GetFee(ctx context.Context, hotelID, day string) (Fee, error) {
	var d feeDoc
	if err := s.fees.FindOne(ctx, bson.M{"hotel": hotelID, "day": day}).Decode(&d); err != nil {
		return Fee{}, mongoErr("find fee", err)
	}
	return d.toFee(), nil
}

// --- Directory ---

func (s *MongoStore) GetHotel(ctx context.Context, id string) (Hotel, error) {
	var d hotelDoc
	if err := s.hotels.FindOne(ctx, idFilter(id)).Decode(&d); err != nil {
		return Hotel{}, mongoErr("find hotel", err)
	}
	return Hotel{ID: idString(d.ID), BusinessName: d.BusinessName, FCMToken: d.FCMToken}, nil
}

func (s *MongoStore) GetHotels(ctx context.Context, ids []string) (map[string]Hotel, error) {
	out := make(map[string]Hotel, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	in := bson.A{}
	for _, id := range ids {
		in = append(in, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			in = append(in, oid)
		}
	}
	cur, err := s.hotels.Find(ctx, bson.M{"_id": bson.M{"$in": in}})
	if err != nil {
		return nil, fmt.Errorf("find hotels: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d hotelDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode hotel: %w", err)
		}
		id := idString(d.ID)
		out[id] = Hotel{ID: id, BusinessName: d.BusinessName, FCMToken: d.FCMToken}
	}
	return out, cur.Err()
}

func (s *MongoStore) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var d customerDoc
	if err := s.customers.FindOne(ctx, idFilter(id)).Decode(&d); err != nil {
		return Customer{}, mongoErr("find customer", err)
	}
	return Customer{ID: idString(d.ID), FullName: d.FullName, FCMToken: d.FCMToken}, nil
}

func (s *MongoStore) UpsertHotel(ctx context.Context, h Hotel) error {
	_, err := s.hotels.UpdateOne(ctx, bson.M{"_id": h.ID},
		bson.M{"$set": bson.M{"businessName": h.BusinessName, "FCMToken": h.FCMToken}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert hotel: %w", err)
	}
	return nil
}

func (s *MongoStore) UpsertCustomer(ctx context.Context, c Customer) error {
	_, err := s.customers.UpdateOne(ctx, bson.M{"_id": c.ID},
		bson.M{"$set": bson.M{"fullName": c.FullName, "FCMToken": c.FCMToken}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// --- Helpers ---

func mongoErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// idFilter matches directory ids stored either as strings or as ObjectIDs
// written by the account services.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	return fmt.Sprint(v)
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
