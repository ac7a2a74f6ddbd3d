package provider

import (
	"github.com/mobi-voucher/internal/cache"
	"github.com/mobi-voucher/internal/config"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/models"
	"github.com/mobi-voucher/internal/queue"
	"github.com/mobi-voucher/internal/repository"
	"github.com/mobi-voucher/internal/service"
)

// Container wires repositories and services together
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	MerchantRepo     repository.MerchantRepository
	WalletRepo       repository.WalletRepository
	VoucherBatchRepo repository.VoucherBatchRepository
	VoucherCardRepo  repository.VoucherCardRepository

	// Services
	MerchantService *service.MerchantService
	WalletService   *service.WalletService
	SerialService   *service.SerialService
	BatchService    *service.BatchService
	CardService     *service.CardService
}

// NewContainer initializes the container
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.MerchantRepo = repository.NewMerchantRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.VoucherBatchRepo = repository.NewVoucherBatchRepository(db)
	c.VoucherCardRepo = repository.NewVoucherCardRepository(db)
}

func (c *Container) initServices() {
	voucherCfg := c.Config.Voucher

	c.WalletService = service.NewWalletService(c.WalletRepo, voucherCfg.Currency)
	c.SerialService = service.NewSerialService(c.VoucherCardRepo, voucherCfg.PinLength, voucherCfg.SerialMaxAttempts)
	discounts := service.NewDiscountCalculator(voucherCfg)
	c.BatchService = service.NewBatchService(
		c.VoucherBatchRepo,
		c.VoucherCardRepo,
		c.WalletRepo,
		c.WalletService,
		c.SerialService,
		discounts,
		voucherCfg,
	)
	c.CardService = service.NewCardService(c.VoucherCardRepo, c.VoucherBatchRepo)
	c.MerchantService = service.NewMerchantService(c.MerchantRepo, c.WalletService, c.Config.JWT)
}
