package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	pr "github.com/unkn0wn-root/mongocache/provider"
)

const mockNS = mtest.TestDb + ".cache"

func mockCollection(mt *mtest.T) pr.Collection {
	mt.Helper()
	conn, err := New(Config{Client: mt.Client})
	if err != nil {
		mt.Fatalf("New: %v", err)
	}
	return conn.Collection(mtest.TestDb, "cache")
}

func TestCollectionAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(time.Minute)

	mt.Run("insert reports duplicate key as taken", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))
		ok, err := coll.Insert(ctx, pr.Record{UID: "k", Value: []byte("v"), MTime: now})
		if err != nil || ok {
			mt.Fatalf("Insert duplicate: ok=%v err=%v", ok, err)
		}
	})

	mt.Run("insert succeeds", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		ok, err := coll.Insert(ctx, pr.Record{UID: "k", Value: []byte("v"), MTime: now})
		if err != nil || !ok {
			mt.Fatalf("Insert: ok=%v err=%v", ok, err)
		}
		if ev := mt.GetStartedEvent(); ev == nil || ev.CommandName != "insert" {
			mt.Fatalf("started event: %+v", ev)
		}
	})

	mt.Run("insert surfaces other write errors", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 2, Message: "bad value",
		}))
		if ok, err := coll.Insert(ctx, pr.Record{UID: "k", MTime: now}); err == nil || ok {
			mt.Fatalf("Insert: ok=%v err=%v", ok, err)
		}
	})

	mt.Run("find decodes records", func(mt *mtest.T) {
		coll := mockCollection(mt)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: id},
				{Key: "uid", Value: "a"},
				{Key: "value", Value: []byte("payload")},
				{Key: "mtime", Value: now},
				{Key: "ttl", Value: int64(60)},
				{Key: "expire", Value: exp},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "uid", Value: "b"},
				{Key: "value", Value: []byte("forever")},
				{Key: "mtime", Value: now},
				{Key: "ttl", Value: int64(0)},
			},
		))
		recs, err := coll.Find(ctx, []string{"a", "b"}, true)
		if err != nil {
			mt.Fatalf("Find: %v", err)
		}
		if len(recs) != 2 {
			mt.Fatalf("got %d records", len(recs))
		}
		a := recs[0]
		if a.ID != id || a.UID != "a" || string(a.Value) != "payload" || a.TTL != 60 {
			mt.Fatalf("record a = %+v", a)
		}
		if !a.MTime.Equal(now) || a.Expire == nil || !a.Expire.Equal(exp) {
			mt.Fatalf("record a times: mtime=%v expire=%v", a.MTime, a.Expire)
		}
		if recs[1].Expire != nil {
			mt.Fatalf("record b should not expire: %v", recs[1].Expire)
		}
	})

	mt.Run("find without uids skips the server", func(mt *mtest.T) {
		coll := mockCollection(mt)
		recs, err := coll.Find(ctx, nil, true)
		if err != nil || recs != nil {
			mt.Fatalf("Find(nil) = %v, %v", recs, err)
		}
		if ev := mt.GetStartedEvent(); ev != nil {
			mt.Fatalf("unexpected command %s", ev.CommandName)
		}
	})

	mt.Run("replace reports match", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)
		rec := pr.Record{UID: "k", Value: []byte("v2"), MTime: now}
		if ok, err := coll.Replace(ctx, rec); err != nil || !ok {
			mt.Fatalf("Replace live: ok=%v err=%v", ok, err)
		}
		if ok, err := coll.Replace(ctx, rec); err != nil || ok {
			mt.Fatalf("Replace missing: ok=%v err=%v", ok, err)
		}
	})

	mt.Run("compare and swap reports match", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		rec := pr.Record{UID: "k", Value: []byte("new"), MTime: now}
		if ok, err := coll.CompareAndSwap(ctx, rec, []byte("stale")); err != nil || ok {
			mt.Fatalf("CAS stale: ok=%v err=%v", ok, err)
		}
		if ok, err := coll.CompareAndSwap(ctx, rec, []byte("old")); err != nil || !ok {
			mt.Fatalf("CAS: ok=%v err=%v", ok, err)
		}
	})

	mt.Run("upsert", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))
		if err := coll.Upsert(ctx, pr.Record{UID: "k", Value: []byte("v"), MTime: now}); err != nil {
			mt.Fatalf("Upsert: %v", err)
		}
		if ev := mt.GetStartedEvent(); ev == nil || ev.CommandName != "update" {
			mt.Fatalf("started event: %+v", ev)
		}
	})

	mt.Run("delete reports removal", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		if ok, err := coll.Delete(ctx, "k"); err != nil || !ok {
			mt.Fatalf("Delete: ok=%v err=%v", ok, err)
		}
		if ok, err := coll.Delete(ctx, "k"); err != nil || ok {
			mt.Fatalf("Delete again: ok=%v err=%v", ok, err)
		}
	})

	mt.Run("delete all", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))
		if err := coll.DeleteAll(ctx); err != nil {
			mt.Fatalf("DeleteAll: %v", err)
		}
		if ev := mt.GetStartedEvent(); ev == nil || ev.CommandName != "delete" {
			mt.Fatalf("started event: %+v", ev)
		}
	})

	mt.Run("command errors surface", func(mt *mtest.T) {
		coll := mockCollection(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))
		if err := coll.DeleteAll(ctx); err == nil {
			mt.Fatal("DeleteAll: expected error")
		}
	})
}
