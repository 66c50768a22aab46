package profile

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per uid.
const DefaultCollection = "users"

type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) FetchProfile(ctx context.Context, uid string) (Document, error) {
	snap, err := f.client.Collection(f.collection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{Exists: false}, nil
	}
	if err != nil {
		return Document{}, &FetchError{UID: uid, Err: err}
	}
	if !snap.Exists() {
		return Document{Exists: false}, nil
	}
	return Document{Exists: true, Data: snap.Data()}, nil
}

// SaveProfile merges data into the uid's document, creating it when missing.
func (f *Firestore) SaveProfile(ctx context.Context, uid string, data map[string]any) error {
	_, err := f.client.Collection(f.collection).Doc(uid).Set(ctx, data, firestore.MergeAll)
	return err
}
