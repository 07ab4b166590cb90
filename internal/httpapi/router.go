package httpapi

import (
	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/shopledger/internal/ledger"
)

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Route("/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.With(requireJSON).Post("/", s.createAccount)
			r.Get("/", s.listAccounts)
			r.Get("/cash-bank", s.cashAndBank)
			r.Get("/chart", s.chart)
			r.Get("/{code}", s.getAccount)
			r.With(requireJSON).Patch("/{code}", s.updateAccount)
			r.Delete("/{code}", s.deactivateAccount)
		})
		r.Get("/dictionary/subtypes", s.subtypes)

		r.Route("/ledger", func(r chi.Router) {
			r.With(requireJSON).Post("/postings", s.postJournal)
			r.Get("/entries", s.listEntries)
			r.Get("/transactions/{transaction_no}", s.getTransaction)
			r.Post("/transactions/{transaction_no}/reverse", s.reverseTransaction)
			r.Get("/balances", s.balances)
		})

		r.Route("/sales", func(r chi.Router) {
			r.With(requireJSON).Post("/", s.recordSale)
			r.Get("/", s.listDocuments(ledger.DocumentSale))
			r.Get("/{number}", s.getDocument(ledger.DocumentSale))
			r.With(requireJSON).Put("/{number}", s.reviseSale)
			r.With(requireJSON).Post("/{number}/payments", s.receivePayment)
			r.Delete("/{number}", s.voidDocument(ledger.DocumentSale))
		})
		r.Route("/expenses", func(r chi.Router) {
			r.With(requireJSON).Post("/", s.recordExpense)
			r.Get("/", s.listDocuments(ledger.DocumentExpense))
			r.Get("/{number}", s.getDocument(ledger.DocumentExpense))
			r.With(requireJSON).Put("/{number}", s.reviseExpense)
			r.Delete("/{number}", s.voidDocument(ledger.DocumentExpense))
		})
		r.Route("/purchase-orders", func(r chi.Router) {
			r.With(requireJSON).Post("/", s.receivePurchase)
			r.Get("/", s.listDocuments(ledger.DocumentPurchase))
			r.Get("/{number}", s.getDocument(ledger.DocumentPurchase))
			r.With(requireJSON).Put("/{number}", s.revisePurchase)
			r.With(requireJSON).Post("/{number}/payments", s.paySupplier)
			r.Delete("/{number}", s.voidDocument(ledger.DocumentPurchase))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", periodReport(s, s.reports.TrialBalance))
			r.Get("/profit-loss", periodReport(s, s.reports.ProfitAndLoss))
			r.Get("/profit-loss/periodic", periodReport(s, s.reports.PeriodicProfitAndLoss))
			r.Get("/profit-loss/ytd", periodReport(s, s.reports.YTDProfitAndLoss))
			r.Get("/balance-sheet", asOfReport(s, s.reports.BalanceSheet))
			r.Get("/cash-flow", periodReport(s, s.reports.CashFlow))
			r.Get("/aging/debtors", agingReport(s, s.reports.DebtorsAging))
			r.Get("/aging/creditors", agingReport(s, s.reports.CreditorsAging))
			r.Get("/expenses", periodReport(s, s.reports.Expenses))
			r.Get("/dashboard", asOfReport(s, s.reports.Dashboard))
		})
	})
}
