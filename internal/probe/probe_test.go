package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sodrooome/service-registry/internal/probe"
)

func TestProbe(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Probe Suite")
}

var _ = Describe("HTTP", func() {
	var (
		prober *probe.HTTP
		server *httptest.Server
		status int
	)

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		prober = probe.NewHTTP(2*time.Second, 0)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Probe", func() {
		It("should report a 200 response as healthy", func() {
			healthy, err := prober.Probe(context.Background(), server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(healthy).To(BeTrue())
		})

		It("should report a non-200 success status as not healthy", func() {
			status = http.StatusNoContent

			healthy, err := prober.Probe(context.Background(), server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(healthy).To(BeFalse())
		})

		It("should report a 5xx response as an error", func() {
			status = http.StatusInternalServerError

			healthy, err := prober.Probe(context.Background(), server.URL)
			Expect(err).To(HaveOccurred())
			Expect(healthy).To(BeFalse())
		})

		It("should report an unreachable endpoint as an error", func() {
			server.Close()

			healthy, err := prober.Probe(context.Background(), server.URL)
			Expect(err).To(HaveOccurred())
			Expect(healthy).To(BeFalse())
		})

		It("should fail on an invalid URL", func() {
			_, err := prober.Probe(context.Background(), "http://invalid url")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Func", func() {
	It("should adapt a function to the Prober interface", func() {
		var p probe.Prober = probe.Func(func(ctx context.Context, url string) (bool, error) {
			return url == "http://up", nil
		})

		healthy, err := p.Probe(context.Background(), "http://up")
		Expect(err).NotTo(HaveOccurred())
		Expect(healthy).To(BeTrue())
	})
})
