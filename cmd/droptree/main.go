// droptree - offline distribution-tree builder and claim signing tool
package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/log"
	"github.com/colorfulnotion/merkledrop/merkle"
	"github.com/colorfulnotion/merkledrop/typeddata"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "droptree",
		Short: "Merkle distribution tree builder and claim signing tool",
		Long: `Builds the distribution tree over a fixed whitelist, emits per-recipient
claim artifacts, and produces or checks the typed-data signatures a sponsor
needs to submit claims on a recipient's behalf.`,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	var (
		logLevel     string
		debugModules string
	)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error|crit)")
	rootCmd.PersistentFlags().StringVar(&debugModules, "debug-modules", "", "Comma-separated module tags to enable for trace/debug logging")

	// Domain flags shared by sign/digest
	var (
		domainName string
		domainVer  string
		chainID    uint64
		contract   string
	)
	addDomainFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&domainName, "name", "MerkleDrop", "Typed-data domain name")
		cmd.Flags().StringVar(&domainVer, "version", "1", "Typed-data domain version")
		cmd.Flags().Uint64Var(&chainID, "chain-id", 1, "Execution chain identifier")
		cmd.Flags().StringVar(&contract, "contract", "", "Deployed distributor instance address (required)")
		cmd.MarkFlagRequired("contract")
	}

	var (
		whitelistPath string
		artifactsPath string
	)
	var buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the distribution tree from a whitelist and emit claim artifacts",
		Run: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debugModules)

			entitlements, err := merkle.LoadWhitelist(whitelistPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Loading whitelist failed: %v\n", err)
				os.Exit(1)
			}
			tree, err := merkle.NewDistributionTree(entitlements)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Building tree failed: %v\n", err)
				os.Exit(1)
			}
			artifacts, err := tree.Artifacts()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Assembling artifacts failed: %v\n", err)
				os.Exit(1)
			}
			if err := merkle.WriteArtifacts(artifactsPath, artifacts); err != nil {
				fmt.Fprintf(os.Stderr, "Writing artifacts failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Entitlements: %d\n", tree.Len())
			fmt.Printf("Root:         %s\n", tree.Root().Hex())
			fmt.Printf("Artifacts:    %s\n", artifactsPath)
		},
	}
	buildCmd.Flags().StringVar(&whitelistPath, "whitelist", "whitelist.json", "Whitelist JSON file")
	buildCmd.Flags().StringVar(&artifactsPath, "out", "artifacts.json", "Output artifact file")

	var verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Re-verify every proof in an artifact file against its root",
		Run: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debugModules)

			artifacts, err := merkle.LoadArtifacts(artifactsPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Loading artifacts failed: %v\n", err)
				os.Exit(1)
			}
			bad := 0
			for _, a := range artifacts {
				leaf := merkle.LeafHash(a.Recipient, a.Amount)
				if leaf != a.Leaf || !merkle.VerifyProof(a.Proof, a.Root, leaf) {
					fmt.Printf("INVALID %s amount=%s\n", a.Recipient.Hex(), a.Amount.Dec())
					bad++
				}
			}
			fmt.Printf("Checked %d artifacts, %d invalid\n", len(artifacts), bad)
			if bad > 0 {
				os.Exit(1)
			}
		},
	}
	verifyCmd.Flags().StringVar(&artifactsPath, "artifacts", "artifacts.json", "Artifact file to verify")

	var (
		privateKeyHex string
		recipientHex  string
		amountStr     string
	)
	var signCmd = &cobra.Command{
		Use:   "sign",
		Short: "Sign the claim digest for (recipient, amount)",
		Run: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debugModules)

			amount, err := merkle.ParseAmount(amountStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Bad amount: %v\n", err)
				os.Exit(1)
			}
			recipient := common.HexToAddress(recipientHex)
			domain := typeddata.NewDomain(domainName, domainVer, chainID, common.HexToAddress(contract))
			digest, sig, err := typeddata.SignClaim(privateKeyHex, domain, recipient, amount)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Signing failed: %v\n", err)
				os.Exit(1)
			}
			signer, _ := typeddata.SignerAddress(privateKeyHex)
			fmt.Printf("Signer:    %s\n", signer.Hex())
			fmt.Printf("Digest:    %s\n", digest.Hex())
			fmt.Printf("Signature: %s\n", common.Bytes2Hex(sig))
		},
	}
	signCmd.Flags().StringVar(&privateKeyHex, "key", "", "Recipient private key in hex (required)")
	signCmd.MarkFlagRequired("key")
	signCmd.Flags().StringVar(&recipientHex, "recipient", "", "Recipient address (required)")
	signCmd.MarkFlagRequired("recipient")
	signCmd.Flags().StringVar(&amountStr, "amount", "", "Entitled amount, decimal or 0x-hex (required)")
	signCmd.MarkFlagRequired("amount")
	addDomainFlags(signCmd)

	var digestCmd = &cobra.Command{
		Use:   "digest",
		Short: "Print the claim digest a recipient must sign",
		Run: func(cmd *cobra.Command, args []string) {
			amount, err := merkle.ParseAmount(amountStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Bad amount: %v\n", err)
				os.Exit(1)
			}
			recipient := common.HexToAddress(recipientHex)
			domain := typeddata.NewDomain(domainName, domainVer, chainID, common.HexToAddress(contract))
			fmt.Printf("Separator: %s\n", domain.Separator().Hex())
			fmt.Printf("Digest:    %s\n", domain.ClaimDigest(recipient, amount).Hex())
		},
	}
	digestCmd.Flags().StringVar(&recipientHex, "recipient", "", "Recipient address (required)")
	digestCmd.MarkFlagRequired("recipient")
	digestCmd.Flags().StringVar(&amountStr, "amount", "", "Entitled amount, decimal or 0x-hex (required)")
	digestCmd.MarkFlagRequired("amount")
	addDomainFlags(digestCmd)

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("droptree %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}

	rootCmd.AddCommand(buildCmd, verifyCmd, signCmd, digestCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
