package paginator_test

import (
	"errors"
	"math"
	"net/url"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tesserae/tess-jobs/internal/paginator"
	"github.com/tesserae/tess-jobs/internal/store"
)

var _ = Describe("paginator", func() {
	Context("parse", func() {
		It("defaults every absent option", func() {
			opts, err := paginator.Parse(paginator.RawOptions{}, 1000)
			Expect(err).To(BeNil())
			Expect(opts.SortBy).To(Equal("score"))
			Expect(opts.SortOrder).To(Equal(store.SortDescending))
			Expect(opts.PerPage).To(Equal(100))
			Expect(opts.PageNumber).To(Equal(0))
		})

		It("defaults options independently", func() {
			opts, err := paginator.Parse(paginator.RawOptions{SortOrder: "ascending", PageNumber: "3"}, 1000)
			Expect(err).To(BeNil())
			Expect(opts.SortBy).To(Equal("score"))
			Expect(opts.SortOrder).To(Equal(store.SortAscending))
			Expect(opts.PerPage).To(Equal(100))
			Expect(opts.PageNumber).To(Equal(3))
		})

		It("reads the options from a query", func() {
			q, err := url.ParseQuery("sort_by=target_tag&sort_order=DESCENDING&per_page=25&page_number=2")
			Expect(err).To(BeNil())

			opts, err := paginator.Parse(paginator.FromQuery(q), 1000)
			Expect(err).To(BeNil())
			Expect(opts.SortBy).To(Equal("target_tag"))
			Expect(opts.SortOrder).To(Equal(store.SortDescending))
			Expect(opts.Offset()).To(Equal(50))
			Expect(opts.Limit()).To(Equal(25))
		})

		It("reports every offending option", func() {
			_, err := paginator.Parse(paginator.RawOptions{
				SortBy:     "colour",
				SortOrder:  "sideways",
				PerPage:    "0",
				PageNumber: "-1",
			}, 1000)
			Expect(err).NotTo(BeNil())

			var perr *paginator.ErrInvalidPageOptions
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Fields).To(HaveLen(4))
			Expect(perr.Fields).To(HaveKey("sort_by"))
			Expect(perr.Fields).To(HaveKey("sort_order"))
			Expect(perr.Fields).To(HaveKey("per_page"))
			Expect(perr.Fields).To(HaveKey("page_number"))
		})

		It("reports options which are not integers", func() {
			_, err := paginator.Parse(paginator.RawOptions{PerPage: "many", PageNumber: "first"}, 1000)

			var perr *paginator.ErrInvalidPageOptions
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Fields).To(HaveLen(2))
			Expect(perr.Fields["per_page"]).To(ContainSubstring("not an integer"))
			Expect(perr.Fields["page_number"]).To(ContainSubstring("not an integer"))
		})

		It("bounds per_page", func() {
			_, err := paginator.Parse(paginator.RawOptions{PerPage: "1001"}, 1000)

			var perr *paginator.ErrInvalidPageOptions
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Fields).To(HaveLen(1))
			Expect(perr.Fields["per_page"]).To(Equal("must be at most 1000"))

			opts, err := paginator.Parse(paginator.RawOptions{PerPage: "1000"}, 1000)
			Expect(err).To(BeNil())
			Expect(opts.PerPage).To(Equal(1000))
		})

		It("rejects page numbers whose offset does not fit in an int", func() {
			_, err := paginator.Parse(paginator.RawOptions{PerPage: "100", PageNumber: "184467440737095517"}, 1000)

			var perr *paginator.ErrInvalidPageOptions
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Fields).To(HaveLen(1))
			Expect(perr.Fields["page_number"]).To(ContainSubstring("must be at most"))

			last := math.MaxInt / 100
			opts, err := paginator.Parse(paginator.RawOptions{PerPage: "100", PageNumber: strconv.Itoa(last)}, 1000)
			Expect(err).To(BeNil())
			Expect(opts.Offset()).To(BeNumerically(">", 0))
		})

		It("does not bound per_page without a maximum", func() {
			opts, err := paginator.Parse(paginator.RawOptions{PerPage: "50000"}, 0)
			Expect(err).To(BeNil())
			Expect(opts.PerPage).To(Equal(50000))
		})
	})

	Context("window", func() {
		It("selects the third page of 100", func() {
			opts, err := paginator.Parse(paginator.RawOptions{PerPage: "100", PageNumber: "2"}, 1000)
			Expect(err).To(BeNil())

			w := opts.Window()
			Expect(w.Offset).To(Equal(200))
			Expect(w.Limit).To(Equal(100))
			Expect(w.SortBy).To(Equal("score"))
			Expect(w.Order).To(Equal(store.SortDescending))
		})
	})

	Context("query", func() {
		It("renders the default options", func() {
			Expect(paginator.Default().Query()).To(Equal("sort_by=score&sort_order=descending&per_page=100&page_number=0"))
		})

		It("round trips through a query string", func() {
			opts, err := paginator.Parse(paginator.RawOptions{SortBy: "source_tag", SortOrder: "ascending", PerPage: "10", PageNumber: "4"}, 1000)
			Expect(err).To(BeNil())

			q, err := url.ParseQuery(opts.Query())
			Expect(err).To(BeNil())
			again, err := paginator.Parse(paginator.FromQuery(q), 1000)
			Expect(err).To(BeNil())
			Expect(again).To(Equal(opts))
		})
	})
})
