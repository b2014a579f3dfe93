package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

type fakePoints struct {
	upserts  []*pb.UpsertPoints
	deletes  []*pb.DeletePoints
	searches []*pb.SearchPoints

	searchResp *pb.SearchResponse
	err        error
}

func (f *fakePoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserts = append(f.upserts, in)
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Delete(_ context.Context, in *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.deletes = append(f.deletes, in)
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.searches = append(f.searches, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.searchResp != nil {
		return f.searchResp, nil
	}
	return &pb.SearchResponse{}, nil
}

type fakeCollections struct {
	existing []string
	creates  []*pb.CreateCollection
}

func (f *fakeCollections) List(context.Context, *pb.ListCollectionsRequest, ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	var descs []*pb.CollectionDescription
	for _, name := range f.existing {
		descs = append(descs, &pb.CollectionDescription{Name: name})
	}
	return &pb.ListCollectionsResponse{Collections: descs}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.creates = append(f.creates, in)
	return &pb.CollectionOperationResponse{}, nil
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	colls := &fakeCollections{existing: []string{"other"}}
	v := NewWithClients(&fakePoints{}, colls, "wine_passages")

	if err := v.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatal(err)
	}
	if len(colls.creates) != 1 {
		t.Fatalf("creates = %d", len(colls.creates))
	}
	c := colls.creates[0]
	if c.CollectionName != "wine_passages" {
		t.Fatalf("collection = %s", c.CollectionName)
	}
	params := c.GetVectorsConfig().GetParams()
	if params.GetSize() != 768 || params.GetDistance() != pb.Distance_Cosine {
		t.Fatalf("vector params = %+v", params)
	}
}

func TestEnsureCollectionSkipsExisting(t *testing.T) {
	colls := &fakeCollections{existing: []string{"wine_passages"}}
	v := NewWithClients(&fakePoints{}, colls, "wine_passages")

	if err := v.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatal(err)
	}
	if len(colls.creates) != 0 {
		t.Fatal("existing collection must not be recreated")
	}
}

func TestUpsertBuildsPayload(t *testing.T) {
	points := &fakePoints{}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	err := v.Upsert(context.Background(), []PassageRecord{{
		ID:        "11111111-2222-3333-4444-555555555555",
		Embedding: []float32{0.1, 0.2},
		Payload: map[string]any{
			"content": "Barolo is made from Nebbiolo.",
			"doc_id":  "doc-1",
			"page":    3,
			"score":   0.9,
			"public":  true,
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(points.upserts) != 1 {
		t.Fatalf("upserts = %d", len(points.upserts))
	}
	req := points.upserts[0]
	if req.CollectionName != "wine_passages" || req.Wait == nil || !*req.Wait {
		t.Fatalf("request = %+v", req)
	}
	p := req.Points[0]
	if p.GetId().GetUuid() != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("id = %v", p.GetId())
	}
	pl := p.GetPayload()
	if pl["content"].GetStringValue() != "Barolo is made from Nebbiolo." {
		t.Fatalf("content = %v", pl["content"])
	}
	if pl["page"].GetIntegerValue() != 3 {
		t.Fatalf("page = %v", pl["page"])
	}
	if pl["score"].GetDoubleValue() != 0.9 {
		t.Fatalf("score = %v", pl["score"])
	}
	if !pl["public"].GetBoolValue() {
		t.Fatalf("public = %v", pl["public"])
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	points := &fakePoints{}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	if err := v.Upsert(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(points.upserts) != 0 {
		t.Fatal("empty upsert should not hit the backend")
	}
}

func TestDeleteByDocIDFilters(t *testing.T) {
	points := &fakePoints{}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	if err := v.DeleteByDocID(context.Background(), "doc-7"); err != nil {
		t.Fatal(err)
	}
	filter := points.deletes[0].GetPoints().GetFilter()
	cond := filter.GetMust()[0].GetField()
	if cond.GetKey() != "doc_id" || cond.GetMatch().GetKeyword() != "doc-7" {
		t.Fatalf("condition = %+v", cond)
	}
}

func TestSearchMapsPayloadFields(t *testing.T) {
	points := &fakePoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{
			Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "p1"}},
			Score: 0.92,
			Payload: map[string]*pb.Value{
				"content": {Kind: &pb.Value_StringValue{StringValue: "Chianti pairs with pasta."}},
				"doc_id":  {Kind: &pb.Value_StringValue{StringValue: "doc-1"}},
				"source":  {Kind: &pb.Value_StringValue{StringValue: "guide"}},
				"region":  {Kind: &pb.Value_StringValue{StringValue: "tuscany"}},
			},
		},
	}}}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	results, err := v.Search(context.Background(), []float32{0.1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	r := results[0]
	if r.ID != "p1" || r.Score != 0.92 {
		t.Fatalf("result = %+v", r)
	}
	if r.Content != "Chianti pairs with pasta." || r.DocID != "doc-1" || r.Source != "guide" {
		t.Fatalf("result = %+v", r)
	}
	if r.Meta["region"] != "tuscany" {
		t.Fatalf("meta = %v", r.Meta)
	}
	if points.searches[0].GetLimit() != 5 {
		t.Fatalf("limit = %d", points.searches[0].GetLimit())
	}
}

func TestSearchFilteredAddsConditions(t *testing.T) {
	points := &fakePoints{}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	_, err := v.SearchFiltered(context.Background(), []float32{0.1}, 3, map[string]string{"region": "piedmont"})
	if err != nil {
		t.Fatal(err)
	}
	filter := points.searches[0].GetFilter()
	if filter == nil || len(filter.GetMust()) != 1 {
		t.Fatalf("filter = %+v", filter)
	}
	cond := filter.GetMust()[0].GetField()
	if cond.GetKey() != "region" || cond.GetMatch().GetKeyword() != "piedmont" {
		t.Fatalf("condition = %+v", cond)
	}
}

func TestSearchError(t *testing.T) {
	points := &fakePoints{err: errors.New("unavailable")}
	v := NewWithClients(points, &fakeCollections{}, "wine_passages")

	if _, err := v.Search(context.Background(), []float32{0.1}, 3); err == nil {
		t.Fatal("expected error")
	}
}
