package buildservice

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("RedisLocker", func() {
	var (
		ctx         context.Context
		redisServer *miniredis.Miniredis
		client      *redis.Client
		locker      *RedisLocker
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		redisServer, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
		locker = NewRedisLocker(client, 0)
	})

	AfterEach(func() {
		client.Close()
		redisServer.Close()
	})

	It("rejects a second lock attempt on the same build", func() {
		unlock, err := locker.Lock(ctx, "b1")
		Expect(err).ToNot(HaveOccurred())

		_, err = locker.Lock(ctx, "b1")
		Expect(err).To(HaveOccurred())

		unlock()
	})

	It("allows re-acquiring after unlock", func() {
		unlock, err := locker.Lock(ctx, "b1")
		Expect(err).ToNot(HaveOccurred())
		unlock()

		_, err = locker.Lock(ctx, "b1")
		Expect(err).ToNot(HaveOccurred())
	})

	It("locks different builds independently", func() {
		unlockA, err := locker.Lock(ctx, "a")
		Expect(err).ToNot(HaveOccurred())
		unlockB, err := locker.Lock(ctx, "b")
		Expect(err).ToNot(HaveOccurred())
		unlockA()
		unlockB()
	})
})

var _ = Describe("LocalLocker", func() {
	It("rejects a second lock attempt on the same build", func() {
		locker := NewLocalLocker()
		unlock, err := locker.Lock(context.Background(), "b1")
		Expect(err).ToNot(HaveOccurred())

		_, err = locker.Lock(context.Background(), "b1")
		Expect(err).To(HaveOccurred())

		unlock()

		_, err = locker.Lock(context.Background(), "b1")
		Expect(err).ToNot(HaveOccurred())
	})
})
