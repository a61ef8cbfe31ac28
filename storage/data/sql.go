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
	"database/sql"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/nopo-io/nopo/storage"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

type SQLRestaurant struct {
	Id        int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name      string  `gorm:"column:resto_name;type:varchar(256);not null;default:''"`
	Address   string  `gorm:"column:address;type:varchar(512);not null;default:''"`
	Grade     string  `gorm:"column:grade;type:varchar(64);not null;default:'';index"`
	LocationX float64 `gorm:"column:location_x;not null;default:0"`
	LocationY float64 `gorm:"column:location_y;not null;default:0"`
	EleId     *int64  `gorm:"column:ele_id"`
}

type SQLElement struct {
	Id            int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	Terrace       *int64  `gorm:"column:terrace"`
	Drinking      *int64  `gorm:"column:drinking"`
	Meal          *int64  `gorm:"column:meal"`
	Lunch         *int64  `gorm:"column:lunch"`
	Dinner        *int64  `gorm:"column:dinner"`
	CostEffective *int64  `gorm:"column:cost_effective"`
	Classy        *int64  `gorm:"column:classy"`
	Mood          *int64  `gorm:"column:mood"`
	Noisy         *int64  `gorm:"column:noisy"`
	Quiet         *int64  `gorm:"column:quiet"`
	RealLocal     *int64  `gorm:"column:real_local"`
	Etc           *string `gorm:"column:etc;type:text"`
}

type SQLUser struct {
	Id           string `gorm:"column:id;type:varchar(256);primaryKey"`
	Nickname     string `gorm:"column:nickname;type:varchar(256);not null;default:''"`
	Email        string `gorm:"column:email;type:varchar(256);not null;default:''"`
	Gender       string `gorm:"column:gender;type:varchar(16);not null;default:''"`
	ProfileImage string `gorm:"column:profile_image;type:varchar(512);not null;default:''"`
	Role         string `gorm:"column:role;type:varchar(64);not null;default:''"`
	AztiType     string `gorm:"column:azti_type;type:varchar(4);not null;default:''"`
}

type SQLReview struct {
	Id           int64     `gorm:"column:id;primaryKey"`
	UserId       string    `gorm:"column:user_id;type:varchar(256);not null;index"`
	RestaurantId int64     `gorm:"column:resto_id;not null;index"`
	Rating       float64   `gorm:"column:rating;not null"`
	Content      string    `gorm:"column:content;type:text"`
	Timestamp    time.Time `gorm:"column:regdate"`
}

type SQLLiked struct {
	UserId       string `gorm:"column:user_id;type:varchar(256);primaryKey"`
	RestaurantId int64  `gorm:"column:resto_id;primaryKey;autoIncrement:false"`
}

type SQLVisited struct {
	UserId       string `gorm:"column:user_id;type:varchar(256);primaryKey"`
	RestaurantId int64  `gorm:"column:resto_id;primaryKey;autoIncrement:false"`
}

// SQLDatabase use MySQL, Postgres or SQLite as data storage.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init tables and indices.
func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.AutoMigrate(SQLRestaurant{}, SQLElement{}, SQLUser{}, SQLReview{}, SQLLiked{}, SQLVisited{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

// Close connection.
func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all rows.
func (d *SQLDatabase) Purge() error {
	for _, tableName := range []string{
		d.RestaurantsTable(),
		d.ElementsTable(),
		d.UsersTable(),
		d.ReviewsTable(),
		d.LikedTable(),
		d.VisitedTable(),
	} {
		if _, err := d.client.Exec("DELETE FROM " + tableName); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// BatchInsertRestaurants inserts or replaces restaurants. Tags are stored in the elements
// table under the id of the restaurant.
func (d *SQLDatabase) BatchInsertRestaurants(ctx context.Context, restaurants []Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}
	startTime := time.Now()
	rows := make([]SQLRestaurant, 0, len(restaurants))
	var elements []SQLElement
	for _, restaurant := range restaurants {
		row := SQLRestaurant{
			Id:        restaurant.Id,
			Name:      restaurant.Name,
			Address:   restaurant.Address,
			Grade:     restaurant.Grade,
			LocationX: restaurant.LocationX,
			LocationY: restaurant.LocationY,
		}
		if restaurant.HasElement() {
			row.EleId = lo.ToPtr(restaurant.Id)
			elements = append(elements, SQLElement{
				Id:            restaurant.Id,
				Terrace:       restaurant.Terrace,
				Drinking:      restaurant.Drinking,
				Meal:          restaurant.Meal,
				Lunch:         restaurant.Lunch,
				Dinner:        restaurant.Dinner,
				CostEffective: restaurant.CostEffective,
				Classy:        restaurant.Classy,
				Mood:          restaurant.Mood,
				Noisy:         restaurant.Noisy,
				Quiet:         restaurant.Quiet,
				RealLocal:     restaurant.RealLocal,
				Etc:           restaurant.Etc,
			})
		}
		rows = append(rows, row)
	}
	if len(elements) > 0 {
		if err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&elements).Error; err != nil {
			return errors.Trace(err)
		}
	}
	if err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
		return errors.Trace(err)
	}
	BatchInsertRestaurantsSeconds.Observe(time.Since(startTime).Seconds())
	return nil
}

func (d *SQLDatabase) selectRestaurants(ctx context.Context) *gorm.DB {
	return d.gormDB.WithContext(ctx).
		Table(d.RestaurantsTable() + " r").
		Select("r.id, r.resto_name, r.address, r.grade, r.location_x, r.location_y, " +
			"e.terrace, e.drinking, e.meal, e.lunch, e.dinner, e.cost_effective, " +
			"e.classy, e.mood, e.noisy, e.quiet, e.real_local, e.etc").
		Joins("LEFT JOIN " + d.ElementsTable() + " e ON r.ele_id = e.id")
}

func scanRestaurants(result *sql.Rows) ([]Restaurant, error) {
	defer result.Close()
	restaurants := make([]Restaurant, 0)
	for result.Next() {
		var r Restaurant
		if err := result.Scan(&r.Id, &r.Name, &r.Address, &r.Grade, &r.LocationX, &r.LocationY,
			&r.Terrace, &r.Drinking, &r.Meal, &r.Lunch, &r.Dinner, &r.CostEffective,
			&r.Classy, &r.Mood, &r.Noisy, &r.Quiet, &r.RealLocal, &r.Etc); err != nil {
			return nil, errors.Trace(err)
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, errors.Trace(result.Err())
}

// GetRestaurant returns a restaurant by id.
func (d *SQLDatabase) GetRestaurant(ctx context.Context, id int64) (Restaurant, error) {
	result, err := d.selectRestaurants(ctx).Where("r.id = ?", id).Rows()
	if err != nil {
		return Restaurant{}, errors.Trace(err)
	}
	restaurants, err := scanRestaurants(result)
	if err != nil {
		return Restaurant{}, errors.Trace(err)
	}
	if len(restaurants) == 0 {
		return Restaurant{}, errors.Annotate(ErrRestaurantNotExist, strconv.FormatInt(id, 10))
	}
	return restaurants[0], nil
}

// GetRestaurants returns all restaurants ordered by id.
func (d *SQLDatabase) GetRestaurants(ctx context.Context) ([]Restaurant, error) {
	startTime := time.Now()
	result, err := d.selectRestaurants(ctx).Order("r.id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	restaurants, err := scanRestaurants(result)
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetRestaurantsSeconds.Observe(time.Since(startTime).Seconds())
	return restaurants, nil
}

// BatchGetRestaurants returns restaurants by ids ordered by id. Unknown ids are skipped.
func (d *SQLDatabase) BatchGetRestaurants(ctx context.Context, ids []int64) ([]Restaurant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	result, err := d.selectRestaurants(ctx).Where("r.id IN ?", ids).Order("r.id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scanRestaurants(result)
}

// GetRestaurantsMatching returns restaurants satisfying a predicate ordered by id.
func (d *SQLDatabase) GetRestaurantsMatching(ctx context.Context, predicate Predicate) ([]Restaurant, error) {
	if err := predicate.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	startTime := time.Now()
	tx := d.selectRestaurants(ctx)
	clauses, args := predicate.sqlClauses()
	for i, c := range clauses {
		tx = tx.Where(c, args[i])
	}
	result, err := tx.Order("r.id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	restaurants, err := scanRestaurants(result)
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetRestaurantsMatchingSeconds.Observe(time.Since(startTime).Seconds())
	return restaurants, nil
}

// GetRandomRestaurants samples n restaurants of a grade. An empty grade samples from all restaurants.
func (d *SQLDatabase) GetRandomRestaurants(ctx context.Context, grade string, n int) ([]Restaurant, error) {
	if n <= 0 {
		return nil, nil
	}
	tx := d.selectRestaurants(ctx)
	if grade != "" {
		tx = tx.Where("r.grade = ?", grade)
	}
	if d.driver == MySQL {
		tx = tx.Order("RAND()")
	} else {
		tx = tx.Order("RANDOM()")
	}
	result, err := tx.Limit(n).Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scanRestaurants(result)
}

// GetRestaurantsInBox returns restaurants strictly inside a box ordered by id.
func (d *SQLDatabase) GetRestaurantsInBox(ctx context.Context, box Box) ([]Restaurant, error) {
	result, err := d.selectRestaurants(ctx).
		Where("r.location_x > ? AND r.location_x < ?", box.MinX, box.MaxX).
		Where("r.location_y > ? AND r.location_y < ?", box.MinY, box.MaxY).
		Order("r.id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scanRestaurants(result)
}

// BatchInsertUsers inserts or replaces users.
func (d *SQLDatabase) BatchInsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	rows := lo.Map(users, func(user User, _ int) SQLUser {
		return SQLUser{
			Id:           user.Id,
			Nickname:     user.Nickname,
			Email:        user.Email,
			Gender:       user.Gender,
			ProfileImage: user.ProfileImage,
			Role:         user.Role,
			AztiType:     user.AztiType,
		}
	})
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	return errors.Trace(err)
}

// BatchInsertReviews inserts or replaces reviews.
func (d *SQLDatabase) BatchInsertReviews(ctx context.Context, reviews []Review) error {
	if len(reviews) == 0 {
		return nil
	}
	rows := lo.Map(reviews, func(review Review, _ int) SQLReview {
		return SQLReview{
			Id:           review.Id,
			UserId:       review.UserId,
			RestaurantId: review.RestaurantId,
			Rating:       review.Rating,
			Content:      review.Content,
			Timestamp:    review.Timestamp,
		}
	})
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) selectReviews(ctx context.Context) *gorm.DB {
	return d.gormDB.WithContext(ctx).
		Table(d.ReviewsTable()).
		Select("id, user_id, resto_id, rating, content, regdate")
}

func scanReviews(result *sql.Rows) ([]Review, error) {
	defer result.Close()
	reviews := make([]Review, 0)
	for result.Next() {
		var (
			review  Review
			content sql.NullString
		)
		if err := result.Scan(&review.Id, &review.UserId, &review.RestaurantId, &review.Rating, &content, &review.Timestamp); err != nil {
			return nil, errors.Trace(err)
		}
		review.Content = content.String
		reviews = append(reviews, review)
	}
	return reviews, errors.Trace(result.Err())
}

// GetReviews returns all reviews ordered by id.
func (d *SQLDatabase) GetReviews(ctx context.Context) ([]Review, error) {
	startTime := time.Now()
	result, err := d.selectReviews(ctx).Order("id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	reviews, err := scanReviews(result)
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetReviewsSeconds.Observe(time.Since(startTime).Seconds())
	return reviews, nil
}

// GetUserReviews returns reviews written by a user ordered by id.
func (d *SQLDatabase) GetUserReviews(ctx context.Context, userId string) ([]Review, error) {
	startTime := time.Now()
	result, err := d.selectReviews(ctx).Where("user_id = ?", userId).Order("id").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	reviews, err := scanReviews(result)
	if err != nil {
		return nil, errors.Trace(err)
	}
	GetUserReviewsSeconds.Observe(time.Since(startTime).Seconds())
	return reviews, nil
}

// GetRestaurantReviews returns reviews of a restaurant with their authors, latest first.
func (d *SQLDatabase) GetRestaurantReviews(ctx context.Context, restaurantId int64) ([]ReviewDetail, error) {
	result, err := d.gormDB.WithContext(ctx).
		Table(d.ReviewsTable()+" v").
		Select("v.id, v.content, v.rating, v.resto_id, v.user_id, "+
			"COALESCE(u.nickname, ''), COALESCE(u.profile_image, '')").
		Joins("LEFT JOIN "+d.UsersTable()+" u ON v.user_id = u.id").
		Where("v.resto_id = ?", restaurantId).
		Order("v.regdate DESC, v.id DESC").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer result.Close()
	details := make([]ReviewDetail, 0)
	for result.Next() {
		var (
			detail  ReviewDetail
			content sql.NullString
		)
		if err = result.Scan(&detail.Id, &content, &detail.Rating, &detail.RestaurantId, &detail.UserId,
			&detail.Nickname, &detail.ProfileImage); err != nil {
			return nil, errors.Trace(err)
		}
		detail.Content = content.String
		details = append(details, detail)
	}
	return details, errors.Trace(result.Err())
}

// GetMeanRating returns the mean rating of a restaurant. The flag is false if the restaurant
// has never been reviewed.
func (d *SQLDatabase) GetMeanRating(ctx context.Context, restaurantId int64) (float64, bool, error) {
	startTime := time.Now()
	var mean sql.NullFloat64
	if err := d.gormDB.WithContext(ctx).
		Table(d.ReviewsTable()).
		Select("AVG(rating)").
		Where("resto_id = ?", restaurantId).
		Row().Scan(&mean); err != nil {
		return 0, false, errors.Trace(err)
	}
	GetMeanRatingSeconds.Observe(time.Since(startTime).Seconds())
	return mean.Float64, mean.Valid, nil
}

// BatchInsertLiked inserts liked pairs. Existing pairs are ignored.
func (d *SQLDatabase) BatchInsertLiked(ctx context.Context, liked []Liked) error {
	if len(liked) == 0 {
		return nil
	}
	rows := lo.Map(liked, func(l Liked, _ int) SQLLiked {
		return SQLLiked{UserId: l.UserId, RestaurantId: l.RestaurantId}
	})
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return errors.Trace(err)
}

// CountLiked returns the number of restaurants liked by a user.
func (d *SQLDatabase) CountLiked(ctx context.Context, userId string) (int, error) {
	startTime := time.Now()
	var count int64
	if err := d.gormDB.WithContext(ctx).
		Table(d.LikedTable()).
		Where("user_id = ?", userId).
		Count(&count).Error; err != nil {
		return 0, errors.Trace(err)
	}
	CountLikedSeconds.Observe(time.Since(startTime).Seconds())
	return int(count), nil
}

// GetMostLiked returns the n most liked restaurants.
func (d *SQLDatabase) GetMostLiked(ctx context.Context, n int) ([]LikeCount, error) {
	result, err := d.gormDB.WithContext(ctx).
		Table(d.LikedTable()).
		Select("resto_id, COUNT(*) AS cnt").
		Group("resto_id").
		Order("cnt DESC, resto_id").
		Limit(n).Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer result.Close()
	counts := make([]LikeCount, 0, n)
	for result.Next() {
		var count LikeCount
		if err = result.Scan(&count.RestaurantId, &count.Count); err != nil {
			return nil, errors.Trace(err)
		}
		counts = append(counts, count)
	}
	return counts, errors.Trace(result.Err())
}

// BatchInsertVisited inserts visited pairs. Existing pairs are ignored.
func (d *SQLDatabase) BatchInsertVisited(ctx context.Context, visited []Visited) error {
	if len(visited) == 0 {
		return nil
	}
	rows := lo.Map(visited, func(v Visited, _ int) SQLVisited {
		return SQLVisited{UserId: v.UserId, RestaurantId: v.RestaurantId}
	})
	err := d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return errors.Trace(err)
}

// GetVisited returns restaurants visited by a user.
func (d *SQLDatabase) GetVisited(ctx context.Context, userId string) (mapset.Set[int64], error) {
	startTime := time.Now()
	result, err := d.gormDB.WithContext(ctx).
		Table(d.VisitedTable()).
		Select("resto_id").
		Where("user_id = ?", userId).Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer result.Close()
	visited := mapset.NewSet[int64]()
	for result.Next() {
		var restaurantId int64
		if err = result.Scan(&restaurantId); err != nil {
			return nil, errors.Trace(err)
		}
		visited.Add(restaurantId)
	}
	GetVisitedSeconds.Observe(time.Since(startTime).Seconds())
	return visited, errors.Trace(result.Err())
}
