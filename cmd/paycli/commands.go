package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/paygate/internal/domain"
	"github.com/punchamoorthee/paygate/internal/service"
)

func typeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Create and fetch payment types",
	}

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a payment type (card, sepa-direct-debit, paypal, invoice, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := domain.NewPaymentType(args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			switch v := pt.(type) {
			case *domain.Card:
				v.Number, _ = f.GetString("number")
				v.ExpiryDate, _ = f.GetString("expiry")
				v.CVC, _ = f.GetString("cvc")
				v.Holder, _ = f.GetString("holder")
			case *domain.SepaDirectDebit:
				v.IBAN, _ = f.GetString("iban")
				v.BIC, _ = f.GetString("bic")
				v.Holder, _ = f.GetString("holder")
			case *domain.BankRedirect:
				v.BIC, _ = f.GetString("bic")
			case *domain.PayPal:
				v.Email, _ = f.GetString("email")
			}
			if err := a.client.Create(cmd.Context(), pt); err != nil {
				return err
			}
			return printJSON(pt)
		},
	}
	create.Flags().String("number", "", "Card number")
	create.Flags().String("expiry", "", "Card expiry date (MM/YYYY)")
	create.Flags().String("cvc", "", "Card verification code")
	create.Flags().String("holder", "", "Card or account holder")
	create.Flags().String("iban", "", "IBAN for direct debit")
	create.Flags().String("bic", "", "BIC for direct debit and bank redirects")
	create.Flags().String("email", "", "PayPal account email")

	get := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a payment type by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := a.client.FetchPaymentType(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"type":         pt.TypeName(),
				"capabilities": pt.Capabilities().String(),
				"resource":     pt,
			})
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

func customerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}
	create := &cobra.Command{
		Use:   "create [firstname] [lastname]",
		Short: "Create a customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cst := domain.NewCustomer(args[0], args[1])
			cst.Email, _ = cmd.Flags().GetString("email")
			cst.ExternalID, _ = cmd.Flags().GetString("customer-id")
			if err := a.client.Create(cmd.Context(), cst); err != nil {
				return err
			}
			return printJSON(cst)
		},
	}
	create.Flags().String("email", "", "Customer email")
	create.Flags().String("customer-id", "", "Merchant customer number")

	get := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a customer by id or merchant customer number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cst, err := a.client.FetchCustomerByExternalID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cst)
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

// txFlags registers the flags shared by charge and authorize.
func txFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("amount", 0, "Amount in major units")
	cmd.Flags().String("currency", "EUR", "ISO currency code")
	cmd.Flags().String("return-url", "https://example.com/return", "URL the customer returns to")
	cmd.Flags().String("order-id", "", "Merchant order id")
	cmd.Flags().String("customer", "", "Customer id")
	cmd.Flags().Bool("3ds", false, "Request 3-D Secure")
	cmd.MarkFlagRequired("amount")
}

func txParams(cmd *cobra.Command) service.TxParams {
	f := cmd.Flags()
	var p service.TxParams
	amount, _ := f.GetFloat64("amount")
	p.Amount = domain.Amount(amount)
	p.Currency, _ = f.GetString("currency")
	p.ReturnURL, _ = f.GetString("return-url")
	p.OrderID, _ = f.GetString("order-id")
	if f.Changed("3ds") {
		v, _ := f.GetBool("3ds")
		p.Card3DS = &v
	}
	if id, _ := f.GetString("customer"); id != "" {
		p.Customer = &domain.Customer{}
		p.Customer.ID = id
	}
	return p
}

func chargeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charge [type-id]",
		Short: "Charge a payment type, opening a new payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := domain.NewPaymentTypeFromID(args[0])
			if err != nil {
				return err
			}
			ch, pay, err := a.client.Charge(cmd.Context(), pt, txParams(cmd))
			if pay != nil && pay.ID != "" {
				printJSON(paymentSummary(pay))
			}
			if err != nil {
				return err
			}
			return printJSON(txSummary(ch.ResourceID(), "charge", ch))
		},
	}
	txFlags(cmd)
	return cmd
}

func authorizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize [type-id]",
		Short: "Authorize an amount on a payment type, opening a new payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := domain.NewPaymentTypeFromID(args[0])
			if err != nil {
				return err
			}
			auth, pay, err := a.client.Authorize(cmd.Context(), pt, txParams(cmd))
			if pay != nil && pay.ID != "" {
				printJSON(paymentSummary(pay))
			}
			if err != nil {
				return err
			}
			return printJSON(txSummary(auth.ResourceID(), "authorize", auth))
		},
	}
	txFlags(cmd)
	return cmd
}

func captureCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [payment-id]",
		Short: "Charge the authorization of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pay, err := a.client.FetchPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetFloat64("amount")
			ch, err := a.client.ChargeAuthorization(cmd.Context(), pay, domain.Amount(amount))
			if err != nil {
				return err
			}
			printJSON(txSummary(ch.ResourceID(), "charge", ch))
			return printJSON(paymentSummary(pay))
		},
	}
	cmd.Flags().Float64("amount", 0, "Amount to capture, 0 captures the rest")
	return cmd
}

func cancelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel [payment-id]",
		Short: "Cancel a payment, or refund a single charge with --charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pay, err := a.client.FetchPayment(ctx, args[0])
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetFloat64("amount")

			var cancels []*domain.Cancellation
			if chargeID, _ := cmd.Flags().GetString("charge"); chargeID != "" {
				ch := pay.Charge(chargeID)
				if ch == nil {
					return fmt.Errorf("payment %s has no charge %s", pay.ID, chargeID)
				}
				cn, err := a.client.CancelCharge(ctx, pay, ch, domain.Amount(amount))
				if err != nil {
					return err
				}
				cancels = append(cancels, cn)
			} else {
				cancels, err = a.client.CancelPayment(ctx, pay, domain.Amount(amount))
				if err != nil {
					return err
				}
			}

			for _, cn := range cancels {
				printJSON(txSummary(cn.ResourceID(), "cancel", cn))
			}
			return printJSON(paymentSummary(pay))
		},
	}
	cmd.Flags().Float64("amount", 0, "Amount to cancel, 0 cancels everything")
	cmd.Flags().String("charge", "", "Refund only this charge")
	return cmd
}

func shipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ship [payment-id]",
		Short: "Report the shipment of a payment's goods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pay, err := a.client.FetchPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			invoiceID, _ := cmd.Flags().GetString("invoice-id")
			orderID, _ := cmd.Flags().GetString("order-id")
			sh, err := a.client.Ship(cmd.Context(), pay, invoiceID, orderID)
			if err != nil {
				return err
			}
			return printJSON(txSummary(sh.ResourceID(), "shipment", sh))
		},
	}
	cmd.Flags().String("invoice-id", "", "Invoice id")
	cmd.Flags().String("order-id", "", "Order id")
	return cmd
}

func paymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Inspect payments",
	}
	get := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a payment with its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pay *domain.Payment
				err error
			)
			if byOrder, _ := cmd.Flags().GetBool("order"); byOrder {
				pay, err = a.client.FetchPaymentByOrderID(cmd.Context(), args[0])
			} else {
				pay, err = a.client.FetchPayment(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(paymentSummary(pay))
		},
	}
	get.Flags().Bool("order", false, "Treat the argument as the merchant order id")
	cmd.AddCommand(get)
	return cmd
}

func historyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [payment-id]",
		Short: "Show the journaled responses of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.journal == nil {
				return fmt.Errorf("no journal configured, set PAYGATE_JOURNAL_PATH or DB_SOURCE")
			}
			snaps, err := a.journal.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Printf("%s  %-6s %-13s %s\n", s.RecordedAt.Format("2006-01-02 15:04:05"), s.Method, s.Kind, s.ID)
			}
			return nil
		},
	}
}

type txStatus interface {
	IsSuccess() bool
	IsPending() bool
	IsError() bool
}

func txSummary(id, kind string, t txStatus) map[string]any {
	status := "error"
	switch {
	case t.IsSuccess():
		status = "success"
	case t.IsPending():
		status = "pending"
	}
	return map[string]any{"id": id, "type": kind, "status": status}
}

func paymentSummary(p *domain.Payment) map[string]any {
	var txns []map[string]any
	if p.Authorization != nil {
		txns = append(txns, txSummary(p.Authorization.ID, "authorize", p.Authorization))
	}
	for _, ch := range p.Charges {
		txns = append(txns, txSummary(ch.ID, "charge", ch))
	}
	for _, cn := range p.Cancellations() {
		txns = append(txns, txSummary(cn.ID, "cancel", cn))
	}
	for _, sh := range p.Shipments {
		txns = append(txns, txSummary(sh.ID, "shipment", sh))
	}
	return map[string]any{
		"id":           p.ID,
		"state":        p.State.String(),
		"orderId":      p.OrderID,
		"redirectUrl":  p.RedirectURL,
		"amount":       p.Amount,
		"transactions": txns,
	}
}
