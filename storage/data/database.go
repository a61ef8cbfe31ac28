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
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/storage"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

var (
	ErrRestaurantNotExist = errors.NotFoundf("restaurant")
	ErrNoDatabase         = errors.NotAssignedf("database")
)

// Tag names in the order they are appended to tag documents.
const (
	Terrace       = "terrace"
	Drinking      = "drinking"
	Meal          = "meal"
	Lunch         = "lunch"
	Dinner        = "dinner"
	CostEffective = "cost_effective"
	Classy        = "classy"
	Mood          = "mood"
	Noisy         = "noisy"
	Quiet         = "quiet"
	RealLocal     = "real_local"
)

var TagNames = []string{Terrace, Drinking, Meal, Lunch, Dinner, CostEffective, Classy, Mood, Noisy, Quiet, RealLocal}

// Tags stores categorical attributes of a restaurant. A nil value means the attribute is missing.
type Tags struct {
	Terrace       *int64  `json:"terrace" bson:"terrace"`
	Drinking      *int64  `json:"drinking" bson:"drinking"`
	Meal          *int64  `json:"meal" bson:"meal"`
	Lunch         *int64  `json:"lunch" bson:"lunch"`
	Dinner        *int64  `json:"dinner" bson:"dinner"`
	CostEffective *int64  `json:"cost_effective" bson:"cost_effective"`
	Classy        *int64  `json:"classy" bson:"classy"`
	Mood          *int64  `json:"mood" bson:"mood"`
	Noisy         *int64  `json:"noisy" bson:"noisy"`
	Quiet         *int64  `json:"quiet" bson:"quiet"`
	RealLocal     *int64  `json:"real_local" bson:"real_local"`
	Etc           *string `json:"etc" bson:"etc"`
}

// Value returns the value of a tag by name.
func (t *Tags) Value(name string) *int64 {
	switch name {
	case Terrace:
		return t.Terrace
	case Drinking:
		return t.Drinking
	case Meal:
		return t.Meal
	case Lunch:
		return t.Lunch
	case Dinner:
		return t.Dinner
	case CostEffective:
		return t.CostEffective
	case Classy:
		return t.Classy
	case Mood:
		return t.Mood
	case Noisy:
		return t.Noisy
	case Quiet:
		return t.Quiet
	case RealLocal:
		return t.RealLocal
	default:
		return nil
	}
}

// HasElement returns true if any tag is present.
func (t *Tags) HasElement() bool {
	if t.Etc != nil {
		return true
	}
	for _, name := range TagNames {
		if t.Value(name) != nil {
			return true
		}
	}
	return false
}

// Restaurant stores meta data about a restaurant.
type Restaurant struct {
	Id        int64   `json:"id" bson:"_id"`
	Name      string  `json:"resto_name" bson:"resto_name"`
	Address   string  `json:"address" bson:"address"`
	Grade     string  `json:"grade" bson:"grade"`
	LocationX float64 `json:"location_x" bson:"location_x"`
	LocationY float64 `json:"location_y" bson:"location_y"`
	Tags      `bson:",inline"`
}

// User stores meta data about a user.
type User struct {
	Id           string `json:"id" bson:"_id"`
	Nickname     string `json:"nickname" bson:"nickname"`
	Email        string `json:"email" bson:"email"`
	Gender       string `json:"gender" bson:"gender"`
	ProfileImage string `json:"profile_image" bson:"profile_image"`
	Role         string `json:"role" bson:"role"`
	AztiType     string `json:"azti_type" bson:"azti_type"`
}

// Review stores a rating left by a user on a restaurant.
type Review struct {
	Id           int64     `json:"id" bson:"_id"`
	UserId       string    `json:"user_id" bson:"user_id"`
	RestaurantId int64     `json:"resto_id" bson:"resto_id"`
	Rating       float64   `json:"rating" bson:"rating"`
	Content      string    `json:"content" bson:"content"`
	Timestamp    time.Time `json:"regdate" bson:"regdate"`
}

// ReviewDetail is a review with its author's profile.
type ReviewDetail struct {
	Id           int64   `json:"id"`
	Content      string  `json:"content"`
	Rating       float64 `json:"rating"`
	RestaurantId int64   `json:"resto_id"`
	UserId       string  `json:"user_id"`
	Nickname     string  `json:"nickname"`
	ProfileImage string  `json:"profile_image"`
}

// Liked marks a restaurant liked by a user.
type Liked struct {
	UserId       string `json:"user_id" bson:"user_id"`
	RestaurantId int64  `json:"resto_id" bson:"resto_id"`
}

// Visited marks a restaurant visited by a user.
type Visited struct {
	UserId       string `json:"user_id" bson:"user_id"`
	RestaurantId int64  `json:"resto_id" bson:"resto_id"`
}

// LikeCount is the number of users who liked a restaurant.
type LikeCount struct {
	RestaurantId int64 `json:"resto_id" bson:"_id"`
	Count        int   `json:"cnt" bson:"cnt"`
}

// Box is a geographic bounding box. Bounds are exclusive.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// NewBox creates a box centered at (x, y).
func NewBox(x, y, radius float64) Box {
	return Box{
		MinX: x - radius,
		MaxX: x + radius,
		MinY: y - radius,
		MaxY: y + radius,
	}
}

type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	BatchInsertRestaurants(ctx context.Context, restaurants []Restaurant) error
	GetRestaurant(ctx context.Context, id int64) (Restaurant, error)
	GetRestaurants(ctx context.Context) ([]Restaurant, error)
	BatchGetRestaurants(ctx context.Context, ids []int64) ([]Restaurant, error)
	GetRestaurantsMatching(ctx context.Context, predicate Predicate) ([]Restaurant, error)
	GetRandomRestaurants(ctx context.Context, grade string, n int) ([]Restaurant, error)
	GetRestaurantsInBox(ctx context.Context, box Box) ([]Restaurant, error)
	BatchInsertUsers(ctx context.Context, users []User) error
	BatchInsertReviews(ctx context.Context, reviews []Review) error
	GetReviews(ctx context.Context) ([]Review, error)
	GetUserReviews(ctx context.Context, userId string) ([]Review, error)
	GetRestaurantReviews(ctx context.Context, restaurantId int64) ([]ReviewDetail, error)
	GetMeanRating(ctx context.Context, restaurantId int64) (float64, bool, error)
	BatchInsertLiked(ctx context.Context, liked []Liked) error
	CountLiked(ctx context.Context, userId string) (int, error)
	GetMostLiked(ctx context.Context, n int) ([]LikeCount, error)
	BatchInsertVisited(ctx context.Context, visited []Visited) error
	GetVisited(ctx context.Context, userId string) (mapset.Set[int64], error)
}

// Open a connection to a database.
func Open(path, tablePrefix string) (Database, error) {
	var err error
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		// probe isolation variable name
		isolationVarName, err := storage.ProbeMySQLIsolationVariableName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		// append parameters
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":       "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			isolationVarName: "'READ-UNCOMMITTED'",
			"parseTime":      "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(semconv.DBSystemMySQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MongoPrefix) || strings.HasPrefix(path, storage.MongoSrvPrefix) {
		// connect to database
		database := new(MongoDB)
		opts := options.Client()
		opts.Monitor = otelmongo.NewMonitor()
		opts.ApplyURI(path)
		if database.client, err = mongo.Connect(context.Background(), opts); err != nil {
			return nil, errors.Trace(err)
		}
		// parse DSN and extract database name
		if cs, err := connstring.ParseAndValidate(path); err != nil {
			return nil, errors.Trace(err)
		} else {
			database.dbName = cs.Database
			database.TablePrefix = storage.TablePrefix(tablePrefix)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		// append parameters
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(semconv.DBSystemSqlite),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		gormConfig := storage.NewGORMConfig(tablePrefix)
		gormConfig.Logger = &zapgorm2.Logger{
			ZapLogger:                 log.Logger(),
			LogLevel:                  logger.Warn,
			SlowThreshold:             10 * time.Second,
			SkipCallerLookup:          false,
			IgnoreRecordNotFoundError: false,
		}
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, gormConfig)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
