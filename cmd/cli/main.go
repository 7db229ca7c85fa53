package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rocketharbor/wdpay/internal/poller"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wdpay-cli",
		Short: "WebDollar payment confirmation CLI",
		Long:  `A command line interface for creating and verifying WebDollar payments.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:3000", "Base URL of the payment API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	var (
		createAmount    string
		createRecipient string
		createReference string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment request",
		Run: func(cmd *cobra.Command, args []string) {
			createPayment(createAmount, createRecipient, createReference)
		},
	}
	createCmd.Flags().StringVar(&createAmount, "amount", "", "Payment amount in WEBD")
	createCmd.Flags().StringVar(&createRecipient, "recipient", "", "Recipient WebDollar address")
	createCmd.Flags().StringVar(&createReference, "reference", "", "Merchant reference (generated when empty)")
	createCmd.MarkFlagRequired("amount")
	createCmd.MarkFlagRequired("recipient")

	statusCmd := &cobra.Command{
		Use:   "status <payment-id>",
		Short: "Show the current state of a payment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(args[0])
		},
	}

	var (
		verifyTxHash      string
		verifyReference   string
		verifyMaxAttempts int
		verifyDelay       time.Duration
	)
	verifyCmd := &cobra.Command{
		Use:   "verify <payment-id>",
		Short: "Report a transaction and wait for on-chain confirmation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			verifyPayment(args[0], verifyReference, verifyTxHash, verifyMaxAttempts, verifyDelay)
		},
	}
	verifyCmd.Flags().StringVar(&verifyTxHash, "tx-hash", "", "Broadcast transaction hash")
	verifyCmd.Flags().StringVar(&verifyReference, "reference", "", "Merchant reference of the payment")
	verifyCmd.Flags().IntVar(&verifyMaxAttempts, "attempts", poller.DefaultMaxAttempts, "Maximum status checks before giving up")
	verifyCmd.Flags().DurationVar(&verifyDelay, "delay", poller.DefaultDelay, "Base delay between status checks")
	verifyCmd.MarkFlagRequired("tx-hash")
	verifyCmd.MarkFlagRequired("reference")

	rootCmd.AddCommand(createCmd, statusCmd, verifyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func createPayment(amount, recipient, reference string) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		fmt.Printf("Invalid amount %q: %v\n", amount, err)
		os.Exit(1)
	}
	if reference == "" {
		reference = poller.NewReference()
	}

	client := poller.NewClient(baseURL, timeout)
	payment, err := client.CreatePayment(context.Background(), amt, recipient, reference)
	if err != nil {
		fmt.Printf("Failed to create payment: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Payment created\n")
	printPayment(payment)
}

func showStatus(paymentID string) {
	client := poller.NewClient(baseURL, timeout)
	payment, err := client.GetStatus(context.Background(), paymentID)
	if err != nil {
		fmt.Printf("Failed to get status: %v\n", err)
		os.Exit(1)
	}
	printPayment(payment)
}

func verifyPayment(paymentID, reference, txHash string, maxAttempts int, delay time.Duration) {
	client := poller.NewClient(baseURL, timeout)
	p := poller.New(client,
		poller.WithMaxAttempts(maxAttempts),
		poller.WithDelay(delay),
	)

	fmt.Printf("Waiting for confirmation of %s (up to %d checks)...\n", paymentID, maxAttempts)

	payment, err := p.VerifyPayment(context.Background(), paymentID, reference, txHash)
	switch {
	case errors.Is(err, poller.ErrPaymentRejected):
		fmt.Println("Payment REJECTED by the network")
		os.Exit(1)
	case errors.Is(err, poller.ErrVerificationTimeout):
		fmt.Println("Verification TIMED OUT, the payment may still confirm later")
		os.Exit(1)
	case err != nil:
		fmt.Printf("Verification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Payment CONFIRMED")
	printPayment(payment)
}

func printPayment(p *poller.Payment) {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render payment: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
