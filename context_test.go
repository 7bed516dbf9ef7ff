package ferry

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/iov-one/ferry/errors"
	. "github.com/smartystreets/goconvey/convey"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

func TestContext(t *testing.T) {
	Convey("Given an empty context", t, func() {
		ctx := context.Background()

		Convey("the default logger is used", func() {
			So(GetLogger(ctx), ShouldEqual, DefaultLogger)
			logger := log.NewTMLogger(os.Stdout)
			So(GetLogger(WithLogger(ctx, logger)), ShouldEqual, logger)
		})

		Convey("the height is missing", func() {
			h, ok := GetHeight(ctx)
			So(ok, ShouldBeFalse)
			So(h, ShouldEqual, 0)
			So(func() { MustGetHeight(ctx) }, ShouldPanic)
		})

		Convey("the block time is an error", func() {
			_, err := BlockTime(ctx)
			So(errors.ErrState.Is(err), ShouldBeTrue)
		})

		Convey("the chain id panics", func() {
			So(func() { GetChainID(ctx) }, ShouldPanic)
		})
	})

	Convey("Given a context of block 7", t, func() {
		now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		ctx := WithHeight(context.Background(), 7)
		ctx = WithHeader(ctx, abci.Header{Height: 7, Time: now, ChainID: "ferry-origin"})
		ctx = WithChainID(ctx, "ferry-origin")

		Convey("all block values are readable", func() {
			So(MustGetHeight(ctx), ShouldEqual, 7)
			So(GetChainID(ctx), ShouldEqual, "ferry-origin")
			got, err := BlockTime(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, now)
		})

		Convey("no block value can be replaced", func() {
			So(func() { WithHeight(ctx, 8) }, ShouldPanic)
			So(func() { WithHeader(ctx, abci.Header{}) }, ShouldPanic)
			So(func() { WithChainID(ctx, "ferry-other") }, ShouldPanic)
		})

		Convey("log info changes the logger only", func() {
			var buf bytes.Buffer
			tagged := WithLogInfo(WithLogger(ctx, log.NewTMLogger(&buf)), "module", "origin")
			GetLogger(tagged).Info("stage changed")
			So(buf.String(), ShouldContainSubstring, "module=origin")
			So(buf.String(), ShouldContainSubstring, "stage changed")
			So(MustGetHeight(tagged), ShouldEqual, 7)
		})
	})
}

func TestIsValidChainID(t *testing.T) {
	cases := map[string]bool{
		"":                      false,
		"short":                 false,
		"ferry-origin":          true,
		"para_2000-v2":          true,
		"no spaces":             false,
		"semi;colon":            false,
		"twenty-one-characters": false,
		"exactly-twenty-chars":  true,
	}
	for id, want := range cases {
		if got := IsValidChainID(id); got != want {
			t.Errorf("%q: want %v, got %v", id, want, got)
		}
	}
}
