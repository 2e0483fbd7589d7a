package cli

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khatadev/khata/cmd"
	"github.com/khatadev/khata/internal/config"
	apperrors "github.com/khatadev/khata/internal/errors"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/store"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [id|code]",
	Short: "Get engagement statistics for a listing",
	Long:  `Get like and view statistics for the listing matching the provided id or short code.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(cobraCmd *cobra.Command, args []string) {
	key := args[0]

	// Charger la configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Échec du chargement de la configuration : %v", err)
	}

	// Charger le document d'état
	st, err := store.Open(cfg.Storage.DataFile)
	if err != nil {
		log.Fatalf("Échec du chargement de l'état : %v", err)
	}

	listingRepo := repository.NewListingRepository(st)

	listing, err := listingRepo.FindByIDOrCode(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrListingNotFound) {
			fmt.Printf("Error: listing '%s' not found\n", key)
		} else {
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	// Afficher les résultats
	fmt.Printf("Statistiques pour l'annonce: %s [%s]\n", listing.ID, listing.Code)
	fmt.Printf("Titre: %s\n", listing.Title)
	fmt.Printf("Tier: %s\n", listing.Type)
	fmt.Printf("Likes: %d\n", listing.Likes)
	fmt.Printf("Vues: %d\n", listing.Views)
	if listing.ActiveTill > 0 {
		fmt.Printf("Active jusqu'au: %s\n", time.UnixMilli(listing.ActiveTill).Format("2006-01-02 15:04:05"))
	}
}
