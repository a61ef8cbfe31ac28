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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

var mongoUri = os.Getenv("MONGO_URI")

type MongoTestSuite struct {
	baseTestSuite
}

func (suite *MongoTestSuite) SetupSuite() {
	ctx := context.Background()
	var err error
	// drop database
	suite.Database, err = Open(mongoUri, "")
	suite.NoError(err)
	const dbName = "nopo_data_test"
	suite.NoError(suite.Database.(*MongoDB).client.Database(dbName).Drop(ctx))
	suite.NoError(suite.Database.Close())
	// connect database
	suite.Database, err = Open(strings.TrimSuffix(mongoUri, "/")+"/"+dbName+"?authSource=admin", "nopo_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *MongoTestSuite) SetupTest() {
	suite.NoError(suite.Database.Purge())
}

func (suite *MongoTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func TestMongo(t *testing.T) {
	if mongoUri == "" {
		t.Skip("MONGO_URI is not set")
	}
	suite.Run(t, new(MongoTestSuite))
}
