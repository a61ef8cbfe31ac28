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
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/client"
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend",
	Short: "Print recommendations",
}

var blendCommand = &cobra.Command{
	Use:   "blend <user-id> <azti-type>",
	Short: "Print blended recommendations for a user",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		recommender, closer := mustCreateRecommender(cmd)
		defer closer()
		restaurants, err := recommender.Blend(context.Background(), args[0], args[1])
		if err != nil {
			log.Logger().Fatal("failed to blend recommendations", zap.Error(err))
		}
		mustPrintTable([]string{"#", "id", "name", "rating"}, ratedRows(restaurants))
	},
}

var cbfCommand = &cobra.Command{
	Use:   "cbf <azti-type>",
	Short: "Print restaurants similar to an azti type",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recommender, closer := mustCreateRecommender(cmd)
		defer closer()
		recommendations, err := recommender.ContentBased(context.Background(), args[0])
		if err != nil {
			log.Logger().Fatal("failed to recommend by content", zap.Error(err))
		}
		mustPrintTable([]string{"#", "id", "name", "similarity"}, recommendationRows(recommendations))
	},
}

var cfCommand = &cobra.Command{
	Use:   "cf <restaurant-id>",
	Short: "Print restaurants rated similarly to a restaurant",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		restaurantId, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Logger().Fatal("invalid restaurant id", zap.String("restaurant_id", args[0]), zap.Error(err))
		}
		recommender, closer := mustCreateRecommender(cmd)
		defer closer()
		restaurants, err := recommender.ItemCollaborative(context.Background(), restaurantId)
		if err != nil {
			log.Logger().Fatal("failed to recommend by collaborative filtering", zap.Error(err))
		}
		mustPrintTable([]string{"#", "id", "name", "rating"}, ratedRows(restaurants))
	},
}

var mfCommand = &cobra.Command{
	Use:   "mf <user-id>",
	Short: "Print restaurants with the highest predicted ratings for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		recommender, closer := mustCreateRecommender(cmd)
		defer closer()
		restaurants, err := recommender.MatrixFactorization(context.Background(), args[0])
		if err != nil {
			log.Logger().Fatal("failed to recommend by matrix factorization", zap.Error(err))
		}
		mustPrintTable([]string{"#", "id", "name", "address"}, restaurantRows(restaurants))
	},
}

// Recommender is implemented by both the local recommender and the REST client.
type Recommender interface {
	Blend(ctx context.Context, userId, aztiType string) ([]logics.RatedRestaurant, error)
	ContentBased(ctx context.Context, aztiType string) ([]model.Recommendation, error)
	ItemCollaborative(ctx context.Context, restaurantId int64) ([]logics.RatedRestaurant, error)
	MatrixFactorization(ctx context.Context, userId string) ([]data.Restaurant, error)
}

var (
	_ Recommender = (*logics.Recommender)(nil)
	_ Recommender = (*client.NopoClient)(nil)
)

func init() {
	recommendCommand.PersistentFlags().String("endpoint", "", "endpoint of a nopo server, the data store is used if empty")
	recommendCommand.PersistentFlags().String("api-key", "", "API key of the nopo server")
	recommendCommand.AddCommand(blendCommand, cbfCommand, cfCommand, mfCommand)
	cliCommand.AddCommand(recommendCommand)
}

func mustCreateRecommender(cmd *cobra.Command) (Recommender, func()) {
	if endpoint := cmd.Flag("endpoint").Value.String(); endpoint != "" {
		return client.NewNopoClient(endpoint, cmd.Flag("api-key").Value.String()), func() {}
	}
	conf, database := mustOpenDatabase(cmd)
	return logics.NewRecommender(database, conf.Recommend), func() {
		if err := database.Close(); err != nil {
			log.Logger().Error("failed to close data store", zap.Error(err))
		}
	}
}

func mustPrintTable(header []string, rows [][]string) {
	if err := printTable(os.Stdout, header, rows); err != nil {
		log.Logger().Fatal("failed to print table", zap.Error(err))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func ratedRows(restaurants []logics.RatedRestaurant) [][]string {
	return lo.Map(restaurants, func(restaurant logics.RatedRestaurant, i int) []string {
		return []string{strconv.Itoa(i + 1), strconv.FormatInt(restaurant.Id, 10), restaurant.Name, formatFloat(restaurant.Rating)}
	})
}

func recommendationRows(recommendations []model.Recommendation) [][]string {
	return lo.Map(recommendations, func(recommendation model.Recommendation, i int) []string {
		return []string{strconv.Itoa(i + 1), strconv.FormatInt(recommendation.Id, 10), recommendation.Name, formatFloat(recommendation.Score)}
	})
}

func restaurantRows(restaurants []data.Restaurant) [][]string {
	return lo.Map(restaurants, func(restaurant data.Restaurant, i int) []string {
		return []string{strconv.Itoa(i + 1), strconv.FormatInt(restaurant.Id, 10), restaurant.Name, restaurant.Address}
	})
}
