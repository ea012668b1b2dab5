/*
Copyright 2026 The voxelforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqlutil_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxelforge/buildcore/pkg/repository/sqlutil"
)

func TestSqlutil(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sqlutil Suite")
}

var _ = Describe("SQL Null Converters", func() {
	Describe("ToNullString", func() {
		It("should return Valid=false when pointer is nil", func() {
			Expect(sqlutil.ToNullString(nil).Valid).To(BeFalse())
		})

		It("should return Valid=false when string is empty", func() {
			emptyStr := ""
			Expect(sqlutil.ToNullString(&emptyStr).Valid).To(BeFalse())
		})

		It("should return Valid=true with string value when pointer is non-nil", func() {
			testStr := "test value"
			result := sqlutil.ToNullString(&testStr)
			Expect(result.Valid).To(BeTrue())
			Expect(result.String).To(Equal("test value"))
		})
	})

	Describe("ToNullStringValue", func() {
		It("should return Valid=false when string is empty", func() {
			Expect(sqlutil.ToNullStringValue("").Valid).To(BeFalse())
		})

		It("should return Valid=true with string value when non-empty", func() {
			result := sqlutil.ToNullStringValue("test value")
			Expect(result.Valid).To(BeTrue())
			Expect(result.String).To(Equal("test value"))
		})
	})

	Describe("ToNullUUID", func() {
		It("should return Valid=false when UUID pointer is nil", func() {
			Expect(sqlutil.ToNullUUID(nil).Valid).To(BeFalse())
		})

		It("should return Valid=true with UUID string when pointer is non-nil", func() {
			id := uuid.New()
			result := sqlutil.ToNullUUID(&id)
			Expect(result.Valid).To(BeTrue())
			Expect(result.String).To(Equal(id.String()))
		})
	})

	Describe("ToNullTime", func() {
		It("should return Valid=false when time pointer is nil", func() {
			Expect(sqlutil.ToNullTime(nil).Valid).To(BeFalse())
		})

		It("should return Valid=true with time value when pointer is non-nil", func() {
			now := time.Now()
			result := sqlutil.ToNullTime(&now)
			Expect(result.Valid).To(BeTrue())
			Expect(result.Time).To(BeTemporally("==", now))
		})
	})

	Describe("ToNullInt64", func() {
		It("should return Valid=false when int64 pointer is nil", func() {
			Expect(sqlutil.ToNullInt64(nil).Valid).To(BeFalse())
		})

		It("should return Valid=true with int64 value when pointer is non-nil", func() {
			value := int64(1500)
			result := sqlutil.ToNullInt64(&value)
			Expect(result.Valid).To(BeTrue())
			Expect(result.Int64).To(Equal(int64(1500)))
		})

		It("should handle zero value correctly", func() {
			value := int64(0)
			result := sqlutil.ToNullInt64(&value)
			Expect(result.Valid).To(BeTrue())
			Expect(result.Int64).To(Equal(int64(0)))
		})
	})

	Describe("FromNullString", func() {
		It("should return nil when Valid=false", func() {
			Expect(sqlutil.FromNullString(sql.NullString{Valid: false})).To(BeNil())
		})

		It("should return string pointer when Valid=true", func() {
			result := sqlutil.FromNullString(sql.NullString{String: "test value", Valid: true})
			Expect(result).ToNot(BeNil())
			Expect(*result).To(Equal("test value"))
		})
	})

	Describe("FromNullTime", func() {
		It("should return nil when Valid=false", func() {
			Expect(sqlutil.FromNullTime(sql.NullTime{Valid: false})).To(BeNil())
		})

		It("should return time pointer when Valid=true", func() {
			now := time.Now()
			result := sqlutil.FromNullTime(sql.NullTime{Time: now, Valid: true})
			Expect(result).ToNot(BeNil())
			Expect(*result).To(BeTemporally("==", now))
		})
	})

	Describe("FromNullInt64", func() {
		It("should return nil when Valid=false", func() {
			Expect(sqlutil.FromNullInt64(sql.NullInt64{Valid: false})).To(BeNil())
		})

		It("should return int64 pointer when Valid=true", func() {
			result := sqlutil.FromNullInt64(sql.NullInt64{Int64: 1500, Valid: true})
			Expect(result).ToNot(BeNil())
			Expect(*result).To(Equal(int64(1500)))
		})

		It("should handle zero value correctly", func() {
			result := sqlutil.FromNullInt64(sql.NullInt64{Int64: 0, Valid: true})
			Expect(result).ToNot(BeNil())
			Expect(*result).To(Equal(int64(0)))
		})
	})

	Describe("Round-trip conversions", func() {
		It("should preserve string value through ToNull and From conversion", func() {
			original := "test value"
			result := sqlutil.FromNullString(sqlutil.ToNullString(&original))
			Expect(result).ToNot(BeNil())
			Expect(*result).To(Equal(original))
		})

		It("should preserve nil through ToNull and From conversion", func() {
			Expect(sqlutil.FromNullString(sqlutil.ToNullString(nil))).To(BeNil())
		})

		It("should preserve time through ToNull and From conversion", func() {
			now := time.Now()
			result := sqlutil.FromNullTime(sqlutil.ToNullTime(&now))
			Expect(result).ToNot(BeNil())
			Expect(*result).To(BeTemporally("==", now))
		})

		It("should preserve int64 through ToNull and From conversion", func() {
			value := int64(1500)
			result := sqlutil.FromNullInt64(sqlutil.ToNullInt64(&value))
			Expect(result).ToNot(BeNil())
			Expect(*result).To(Equal(value))
		})
	})
})
