package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/medbot/pill-reminder/ai"
	"github.com/medbot/pill-reminder/controller"
	"github.com/medbot/pill-reminder/dao"
	"github.com/medbot/pill-reminder/log"
	"github.com/medbot/pill-reminder/service"
	"github.com/medbot/pill-reminder/util"
	"github.com/medbot/pill-reminder/whatsapp"
	"go.uber.org/zap"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Error.Println(err)
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	//create db client
	dbClient, err := dao.GetClient(util.GetEnv("DB_PATH", "reminder.db"))
	if err != nil {
		log.Fatal(err)
	}

	//create whatsapp gateway client
	waClient := whatsapp.NewClient(
		util.GetEnv("GREEN_API_URL", "https://api.green-api.com"),
		util.GetEnv("GREEN_API_INSTANCE_ID", ""),
		util.GetEnv("GREEN_API_TOKEN", ""),
		util.GetEnvAsInt("WA_PER_SEC", 1))

	//create confirmation classifier
	var classifier ai.Classifier
	if apiKey := util.GetEnv("OPENAI_API_KEY", ""); apiKey != "" {
		classifier = ai.NewOpenAiClassifier(apiKey, util.GetEnv("OPENAI_MODEL", "gpt-4o-mini"))
	} else {
		classifier = ai.NewTemplateClassifier()
	}

	loc, err := time.LoadLocation(util.GetEnv("TIMEZONE", "Asia/Jerusalem"))
	if err != nil {
		log.Fatal(err)
	}

	reminderService := service.NewService(
		waClient,
		classifier,
		dao.NewCustomerDao(dbClient),
		dao.NewReminderDao(dbClient),
		dao.NewMessageDao(dbClient),
		loc,
		util.GetEnvAsInt("STATUS_STORE_DAYS", 90),
	)

	//local trigger: minute ticker driving due checks, recovery and escalations
	stop := make(chan struct{})
	go reminderService.RunSchedule(time.Minute, stop)

	//when the webhook is off, poll the gateway for inbound replies
	if !util.GetEnvAsBool("WEBHOOK_ENABLED", false) {
		poller := whatsapp.NewPoller(waClient, time.Duration(util.GetEnvAsInt("POLL_SEC", 10))*time.Second)
		poller.Start()
		go reminderService.ListenInbound(poller.Subscribe())
	}

	//attach http handlers
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.BodyLimit("16K"))

	bindRoutes(e, reminderService)

	//start http server
	log.Fatal(e.Start(":" + util.GetEnv("HTTP_PORT", "8080")))
}

func bindRoutes(e *echo.Echo, srv service.Service) {

	e.POST("/api/reminder/trigger", controller.GetTriggerReminderFunc(srv))
	e.POST("/api/reminder/recover", controller.GetRecoverMissedFunc(srv))
	e.POST("/api/escalation/check", controller.GetCheckEscalationsFunc(srv))

	e.POST("/webhook", controller.GetWebhookFunc(srv))

	e.POST("/api/customers", controller.GetAddCustomerFunc(srv))
	e.GET("/api/customers", controller.GetListCustomersFunc(srv))
	e.PUT("/api/customers/:id", controller.GetUpdateCustomerFunc(srv))
	e.DELETE("/api/customers/:id", controller.GetDeleteCustomerFunc(srv))

	e.GET("/api/messages", controller.GetListMessagesFunc(srv))

	e.GET("/health", controller.GetHealthFunc(srv))
}
