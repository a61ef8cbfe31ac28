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
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/nopo-io/nopo/storage"
	"github.com/stretchr/testify/suite"
)

var (
	mySqlDSN    = os.Getenv("MYSQL_URI")
	postgresDSN = os.Getenv("POSTGRES_URI")
)

type SQLiteTestSuite struct {
	baseTestSuite
}

func (suite *SQLiteTestSuite) SetupTest() {
	var err error
	// create database
	path := fmt.Sprintf("sqlite://%s/sqlite.db", suite.T().TempDir())
	suite.Database, err = Open(path, "nopo_")
	suite.NoError(err)
	// create schema
	err = suite.Database.Init()
	suite.NoError(err)
}

func (suite *SQLiteTestSuite) TearDownTest() {
	suite.NoError(suite.Database.Close())
}

func TestSQLite(t *testing.T) {
	suite.Run(t, new(SQLiteTestSuite))
}

type MySQLTestSuite struct {
	baseTestSuite
}

func (suite *MySQLTestSuite) SetupSuite() {
	// create database
	databaseComm, err := sql.Open("mysql", mySqlDSN[len(storage.MySQLPrefix):])
	suite.NoError(err)
	const dbName = "nopo_data_test"
	_, err = databaseComm.Exec("DROP DATABASE IF EXISTS " + dbName)
	suite.NoError(err)
	_, err = databaseComm.Exec("CREATE DATABASE " + dbName)
	suite.NoError(err)
	suite.NoError(databaseComm.Close())
	// connect database
	suite.Database, err = Open(strings.TrimSuffix(mySqlDSN, "/")+"/"+dbName+"?timeout=30s&parseTime=true", "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *MySQLTestSuite) SetupTest() {
	suite.NoError(suite.Database.Purge())
}

func (suite *MySQLTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func TestMySQL(t *testing.T) {
	if mySqlDSN == "" {
		t.Skip("MYSQL_URI is not set")
	}
	suite.Run(t, new(MySQLTestSuite))
}

type PostgresTestSuite struct {
	baseTestSuite
}

func (suite *PostgresTestSuite) SetupSuite() {
	// create database
	databaseComm, err := sql.Open("postgres", postgresDSN+"?sslmode=disable&TimeZone=UTC")
	suite.NoError(err)
	const dbName = "nopo_data_test"
	_, err = databaseComm.Exec("DROP DATABASE IF EXISTS " + dbName)
	suite.NoError(err)
	_, err = databaseComm.Exec("CREATE DATABASE " + dbName)
	suite.NoError(err)
	suite.NoError(databaseComm.Close())
	// connect database
	suite.Database, err = Open(strings.TrimSuffix(postgresDSN, "/")+"/"+dbName+"?sslmode=disable&TimeZone=UTC", "")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *PostgresTestSuite) SetupTest() {
	suite.NoError(suite.Database.Purge())
}

func (suite *PostgresTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
}

func TestPostgres(t *testing.T) {
	if postgresDSN == "" {
		t.Skip("POSTGRES_URI is not set")
	}
	suite.Run(t, new(PostgresTestSuite))
}
