package product

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// MongoCollection is the collection products are stored in.
const MongoCollection = "products"

// MongoStore is a Store backed by a MongoDB collection with a unique index
// on m_number.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// OpenMongo connects to uri and prepares the products collection in db.
func OpenMongo(ctx context.Context, uri, db string) (*MongoStore, error) {
	if db == "" {
		db = "signmaker"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongo")
	}

	coll := client.Database(db).Collection(MongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "m_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create m_number index")
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]*Product, error) {
	filter := bson.M{}
	if f.QAStatus != "" {
		filter["qa_status"] = f.QAStatus
	}
	if len(f.MNumbers) > 0 {
		filter["m_number"] = bson.M{"$in": f.MNumbers}
	}

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "m_number", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list products")
	}
	defer cur.Close(ctx)

	var out []*Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode products")
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, mNumber string) (*Product, error) {
	var p Product
	err := s.coll.FindOne(ctx, bson.M{"m_number": mNumber}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get product %s", mNumber)
	}
	return &p, nil
}

func (s *MongoStore) Create(ctx context.Context, p *Product) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.ID == 0 {
		p.ID = now.UnixNano()
	}

	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New(errors.ErrCodeConflict, "product %s already exists", p.MNumber)
		}
		return errors.Wrap(errors.ErrCodeStorage, err, "insert product %s", p.MNumber)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, mNumber string, patch Patch) (*Product, error) {
	p, err := s.Get(ctx, mNumber)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"m_number": mNumber}, p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "update product %s", mNumber)
	}
	if res.MatchedCount == 0 {
		return nil, errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	return p, nil
}

func (s *MongoStore) Delete(ctx context.Context, mNumber string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"m_number": mNumber})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete product %s", mNumber)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeProductNotFound, "product %s not found", mNumber)
	}
	return nil
}
