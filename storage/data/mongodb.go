// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/storage"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the data storage based on MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	existed := mapset.NewSet(collections...)
	// create collections
	for _, name := range []string{
		db.RestaurantsTable(),
		db.UsersTable(),
		db.ReviewsTable(),
		db.LikedTable(),
		db.VisitedTable(),
	} {
		if !existed.Contains(name) {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	// create index
	if _, err = d.Collection(db.ReviewsTable()).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "resto_id", Value: 1}}},
	}); err != nil {
		return errors.Trace(err)
	}
	for _, name := range []string{db.LikedTable(), db.VisitedTable()} {
		if _, err = d.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "resto_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	_, err = d.Collection(db.RestaurantsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "grade", Value: 1}},
	})
	return errors.Trace(err)
}

func (db *MongoDB) Ping() error {
	return db.client.Ping(context.Background(), nil)
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

// Purge deletes all documents.
func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, name := range []string{
		db.RestaurantsTable(),
		db.UsersTable(),
		db.ReviewsTable(),
		db.LikedTable(),
		db.VisitedTable(),
	} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) restaurants() *mongo.Collection {
	return db.client.Database(db.dbName).Collection(db.RestaurantsTable())
}

func (db *MongoDB) reviews() *mongo.Collection {
	return db.client.Database(db.dbName).Collection(db.ReviewsTable())
}

// BatchInsertRestaurants inserts or replaces restaurants.
func (db *MongoDB) BatchInsertRestaurants(ctx context.Context, restaurants []Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}
	startTime := time.Now()
	var models []mongo.WriteModel
	for _, restaurant := range restaurants {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": restaurant.Id}).
			SetReplacement(restaurant))
	}
	if _, err := db.restaurants().BulkWrite(ctx, models); err != nil {
		return errors.Trace(err)
	}
	BatchInsertRestaurantsSeconds.Observe(time.Since(startTime).Seconds())
	return nil
}

func decodeRestaurants(ctx context.Context, r *mongo.Cursor) ([]Restaurant, error) {
	defer r.Close(ctx)
	restaurants := make([]Restaurant, 0)
	for r.Next(ctx) {
		var restaurant Restaurant
		if err := r.Decode(&restaurant); err != nil {
			return nil, errors.Trace(err)
		}
		restaurants = append(restaurants, restaurant)
	}
	return restaurants, errors.Trace(r.Err())
}

func (db *MongoDB) findRestaurants(ctx context.Context, filter any) ([]Restaurant, error) {
	opt := options.Find()
	opt.SetSort(bson.D{{Key: "_id", Value: 1}})
	r, err := db.restaurants().Find(ctx, filter, opt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return decodeRestaurants(ctx, r)
}

// GetRestaurant returns a restaurant by id.
func (db *MongoDB) GetRestaurant(ctx context.Context, id int64) (restaurant Restaurant, err error) {
	r := db.restaurants().FindOne(ctx, bson.M{"_id": id})
	if errors.Is(r.Err(), mongo.ErrNoDocuments) {
		err = errors.Annotate(ErrRestaurantNotExist, strconv.FormatInt(id, 10))
		return
	}
	err = errors.Trace(r.Decode(&restaurant))
	return
}

// GetRestaurants returns all restaurants ordered by id.
func (db *MongoDB) GetRestaurants(ctx context.Context) ([]Restaurant, error) {
	startTime := time.Now()
	restaurants, err := db.findRestaurants(ctx, bson.M{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetRestaurantsSeconds.Observe(time.Since(startTime).Seconds())
	return restaurants, nil
}

// BatchGetRestaurants returns restaurants by ids ordered by id. Unknown ids are skipped.
func (db *MongoDB) BatchGetRestaurants(ctx context.Context, ids []int64) ([]Restaurant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return db.findRestaurants(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// GetRestaurantsMatching returns restaurants satisfying a predicate ordered by id.
func (db *MongoDB) GetRestaurantsMatching(ctx context.Context, predicate Predicate) ([]Restaurant, error) {
	if err := predicate.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	startTime := time.Now()
	restaurants, err := db.findRestaurants(ctx, predicate.bsonFilter())
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetRestaurantsMatchingSeconds.Observe(time.Since(startTime).Seconds())
	return restaurants, nil
}

// GetRandomRestaurants samples n restaurants of a grade. An empty grade samples from all restaurants.
func (db *MongoDB) GetRandomRestaurants(ctx context.Context, grade string, n int) ([]Restaurant, error) {
	if n <= 0 {
		return nil, nil
	}
	var pipeline mongo.Pipeline
	if grade != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"grade": grade}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$sample", Value: bson.M{"size": n}}})
	r, err := db.restaurants().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return decodeRestaurants(ctx, r)
}

// GetRestaurantsInBox returns restaurants strictly inside a box ordered by id.
func (db *MongoDB) GetRestaurantsInBox(ctx context.Context, box Box) ([]Restaurant, error) {
	return db.findRestaurants(ctx, bson.M{
		"location_x": bson.M{"$gt": box.MinX, "$lt": box.MaxX},
		"location_y": bson.M{"$gt": box.MinY, "$lt": box.MaxY},
	})
}

// BatchInsertUsers inserts or replaces users.
func (db *MongoDB) BatchInsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	var models []mongo.WriteModel
	for _, user := range users {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": user.Id}).
			SetReplacement(user))
	}
	_, err := db.client.Database(db.dbName).Collection(db.UsersTable()).BulkWrite(ctx, models)
	return errors.Trace(err)
}

// BatchInsertReviews inserts or replaces reviews.
func (db *MongoDB) BatchInsertReviews(ctx context.Context, reviews []Review) error {
	if len(reviews) == 0 {
		return nil
	}
	var models []mongo.WriteModel
	for _, review := range reviews {
		models = append(models, mongo.NewReplaceOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"_id": review.Id}).
			SetReplacement(review))
	}
	_, err := db.reviews().BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) findReviews(ctx context.Context, filter any) ([]Review, error) {
	opt := options.Find()
	opt.SetSort(bson.D{{Key: "_id", Value: 1}})
	r, err := db.reviews().Find(ctx, filter, opt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	reviews := make([]Review, 0)
	for r.Next(ctx) {
		var review Review
		if err = r.Decode(&review); err != nil {
			return nil, errors.Trace(err)
		}
		reviews = append(reviews, review)
	}
	return reviews, errors.Trace(r.Err())
}

// GetReviews returns all reviews ordered by id.
func (db *MongoDB) GetReviews(ctx context.Context) ([]Review, error) {
	startTime := time.Now()
	reviews, err := db.findReviews(ctx, bson.M{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetReviewsSeconds.Observe(time.Since(startTime).Seconds())
	return reviews, nil
}

// GetUserReviews returns reviews written by a user ordered by id.
func (db *MongoDB) GetUserReviews(ctx context.Context, userId string) ([]Review, error) {
	startTime := time.Now()
	reviews, err := db.findReviews(ctx, bson.M{"user_id": userId})
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetUserReviewsSeconds.Observe(time.Since(startTime).Seconds())
	return reviews, nil
}

// GetRestaurantReviews returns reviews of a restaurant with their authors, latest first.
func (db *MongoDB) GetRestaurantReviews(ctx context.Context, restaurantId int64) ([]ReviewDetail, error) {
	opt := options.Find()
	opt.SetSort(bson.D{{Key: "regdate", Value: -1}, {Key: "_id", Value: -1}})
	r, err := db.reviews().Find(ctx, bson.M{"resto_id": restaurantId}, opt)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var reviews []Review
	if err = r.All(ctx, &reviews); err != nil {
		return nil, errors.Trace(err)
	}
	// load authors
	userIds := lo.Uniq(lo.Map(reviews, func(review Review, _ int) string {
		return review.UserId
	}))
	users := make(map[string]User)
	if len(userIds) > 0 {
		u, err := db.client.Database(db.dbName).Collection(db.UsersTable()).Find(ctx, bson.M{"_id": bson.M{"$in": userIds}})
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer u.Close(ctx)
		for u.Next(ctx) {
			var user User
			if err = u.Decode(&user); err != nil {
				return nil, errors.Trace(err)
			}
			users[user.Id] = user
		}
	}
	return lo.Map(reviews, func(review Review, _ int) ReviewDetail {
		user := users[review.UserId]
		return ReviewDetail{
			Id:           review.Id,
			Content:      review.Content,
			Rating:       review.Rating,
			RestaurantId: review.RestaurantId,
			UserId:       review.UserId,
			Nickname:     user.Nickname,
			ProfileImage: user.ProfileImage,
		}
	}), nil
}

// GetMeanRating returns the mean rating of a restaurant. The flag is false if the restaurant
// has never been reviewed.
func (db *MongoDB) GetMeanRating(ctx context.Context, restaurantId int64) (float64, bool, error) {
	startTime := time.Now()
	r, err := db.reviews().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"resto_id": restaurantId}}},
		{{Key: "$group", Value: bson.M{"_id": "$resto_id", "mean": bson.M{"$avg": "$rating"}}}},
	})
	if err != nil {
		return 0, false, errors.Trace(err)
	}
	defer r.Close(ctx)
	var result struct {
		Mean float64 `bson:"mean"`
	}
	if !r.Next(ctx) {
		return 0, false, errors.Trace(r.Err())
	}
	if err = r.Decode(&result); err != nil {
		return 0, false, errors.Trace(err)
	}
	GetMeanRatingSeconds.Observe(time.Since(startTime).Seconds())
	return result.Mean, true, nil
}

// BatchInsertLiked inserts liked pairs. Existing pairs are ignored.
func (db *MongoDB) BatchInsertLiked(ctx context.Context, liked []Liked) error {
	if len(liked) == 0 {
		return nil
	}
	var models []mongo.WriteModel
	for _, l := range liked {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": l.UserId, "resto_id": l.RestaurantId}).
			SetUpdate(bson.M{"$set": l}))
	}
	_, err := db.client.Database(db.dbName).Collection(db.LikedTable()).BulkWrite(ctx, models)
	return errors.Trace(err)
}

// CountLiked returns the number of restaurants liked by a user.
func (db *MongoDB) CountLiked(ctx context.Context, userId string) (int, error) {
	startTime := time.Now()
	n, err := db.client.Database(db.dbName).Collection(db.LikedTable()).CountDocuments(ctx, bson.M{"user_id": userId})
	if err != nil {
		return 0, errors.Trace(err)
	}
	CountLikedSeconds.Observe(time.Since(startTime).Seconds())
	return int(n), nil
}

// GetMostLiked returns the n most liked restaurants.
func (db *MongoDB) GetMostLiked(ctx context.Context, n int) ([]LikeCount, error) {
	r, err := db.client.Database(db.dbName).Collection(db.LikedTable()).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$resto_id", "cnt": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "cnt", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: n}},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	counts := make([]LikeCount, 0, n)
	if err = r.All(ctx, &counts); err != nil {
		return nil, errors.Trace(err)
	}
	return counts, nil
}

// BatchInsertVisited inserts visited pairs. Existing pairs are ignored.
func (db *MongoDB) BatchInsertVisited(ctx context.Context, visited []Visited) error {
	if len(visited) == 0 {
		return nil
	}
	var models []mongo.WriteModel
	for _, v := range visited {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": v.UserId, "resto_id": v.RestaurantId}).
			SetUpdate(bson.M{"$set": v}))
	}
	_, err := db.client.Database(db.dbName).Collection(db.VisitedTable()).BulkWrite(ctx, models)
	return errors.Trace(err)
}

// GetVisited returns restaurants visited by a user.
func (db *MongoDB) GetVisited(ctx context.Context, userId string) (mapset.Set[int64], error) {
	startTime := time.Now()
	r, err := db.client.Database(db.dbName).Collection(db.VisitedTable()).Find(ctx, bson.M{"user_id": userId})
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	visited := mapset.NewSet[int64]()
	for r.Next(ctx) {
		var v Visited
		if err = r.Decode(&v); err != nil {
			return nil, errors.Trace(err)
		}
		visited.Add(v.RestaurantId)
	}
	GetVisitedSeconds.Observe(time.Since(startTime).Seconds())
	return visited, errors.Trace(r.Err())
}
