package stream

// Service names a streamer service.
type Service string

// Streamer services.
const (
	ServiceAdmin                  Service = "ADMIN"
	ServiceQuote                  Service = "QUOTE"
	ServiceOption                 Service = "OPTION"
	ServiceLevelOneFutures        Service = "LEVELONE_FUTURES"
	ServiceLevelOneFuturesOptions Service = "LEVELONE_FUTURES_OPTIONS"
	ServiceLevelOneForex          Service = "LEVELONE_FOREX"
	ServiceNewsHeadline           Service = "NEWS_HEADLINE"
	ServiceChartEquity            Service = "CHART_EQUITY"
	ServiceChartFutures           Service = "CHART_FUTURES"
	ServiceChartOptions           Service = "CHART_OPTIONS"
	ServiceTimesaleEquity         Service = "TIMESALE_EQUITY"
	ServiceTimesaleForex          Service = "TIMESALE_FOREX"
	ServiceTimesaleFutures        Service = "TIMESALE_FUTURES"
	ServiceTimesaleOptions        Service = "TIMESALE_OPTIONS"
	ServiceAccountActivity        Service = "ACCT_ACTIVITY"
)

// Command is a streamer request verb.
type Command string

// Streamer commands.
const (
	CommandLogin       Command = "LOGIN"
	CommandLogout      Command = "LOGOUT"
	CommandQOS         Command = "QOS"
	CommandSubscribe   Command = "SUBS"
	CommandUnsubscribe Command = "UNSUBS"
)

// QOSLevel sets how often the server pushes updates; 0 is fastest.
type QOSLevel string

// Quality of service levels.
const (
	QOSExpress  QOSLevel = "0" // 500 ms
	QOSRealTime QOSLevel = "1" // 750 ms
	QOSFast     QOSLevel = "2" // 1 s
	QOSModerate QOSLevel = "3" // 1.5 s
	QOSSlow     QOSLevel = "4" // 3 s
	QOSDelayed  QOSLevel = "5" // 5 s
)

// QuoteField is a QUOTE (level one equity) field id. Other level one
// services number their fields differently; use their own catalogs.
type QuoteField string

// QuoteField values.
const (
	QuoteSymbol                       QuoteField = "0"
	QuoteBidPrice                     QuoteField = "1"
	QuoteAskPrice                     QuoteField = "2"
	QuoteLastPrice                    QuoteField = "3"
	QuoteBidSize                      QuoteField = "4"
	QuoteAskSize                      QuoteField = "5"
	QuoteAskID                        QuoteField = "6"
	QuoteBidID                        QuoteField = "7"
	QuoteTotalVolume                  QuoteField = "8"
	QuoteLastSize                     QuoteField = "9"
	QuoteTradeTime                    QuoteField = "10"
	QuoteQuoteTime                    QuoteField = "11"
	QuoteHighPrice                    QuoteField = "12"
	QuoteLowPrice                     QuoteField = "13"
	QuoteBidTick                      QuoteField = "14"
	QuoteClosePrice                   QuoteField = "15"
	QuoteExchangeID                   QuoteField = "16"
	QuoteMarginable                   QuoteField = "17"
	QuoteShortable                    QuoteField = "18"
	QuoteIslandBid                    QuoteField = "19"
	QuoteIslandAsk                    QuoteField = "20"
	QuoteIslandVolume                 QuoteField = "21"
	QuoteQuoteDay                     QuoteField = "22"
	QuoteTradeDay                     QuoteField = "23"
	QuoteVolatility                   QuoteField = "24"
	QuoteDescription                  QuoteField = "25"
	QuoteLastID                       QuoteField = "26"
	QuoteDigits                       QuoteField = "27"
	QuoteOpenPrice                    QuoteField = "28"
	QuoteNetChange                    QuoteField = "29"
	QuoteFiftyTwoWeekHigh             QuoteField = "30"
	QuoteFiftyTwoWeekLow              QuoteField = "31"
	QuotePERatio                      QuoteField = "32"
	QuoteDividendAmount               QuoteField = "33"
	QuoteDividendYield                QuoteField = "34"
	QuoteIslandBidSize                QuoteField = "35"
	QuoteIslandAskSize                QuoteField = "36"
	QuoteNAV                          QuoteField = "37"
	QuoteFundPrice                    QuoteField = "38"
	QuoteExchangeName                 QuoteField = "39"
	QuoteDividendDate                 QuoteField = "40"
	QuoteRegularMarketQuote           QuoteField = "41"
	QuoteRegularMarketTrade           QuoteField = "42"
	QuoteRegularMarketLastPrice       QuoteField = "43"
	QuoteRegularMarketLastSize        QuoteField = "44"
	QuoteRegularMarketTradeTime       QuoteField = "45"
	QuoteRegularMarketTradeDay        QuoteField = "46"
	QuoteRegularMarketNetChange       QuoteField = "47"
	QuoteSecurityStatus               QuoteField = "48"
	QuoteMark                         QuoteField = "49"
	QuoteQuoteTimeInLong              QuoteField = "50"
	QuoteTradeTimeInLong              QuoteField = "51"
	QuoteRegularMarketTradeTimeInLong QuoteField = "52"
)

// ForexField is a LEVELONE_FOREX field id.
type ForexField string

// ForexField values.
const (
	ForexSymbol           ForexField = "0"
	ForexBidPrice         ForexField = "1"
	ForexAskPrice         ForexField = "2"
	ForexLastPrice        ForexField = "3"
	ForexBidSize          ForexField = "4"
	ForexAskSize          ForexField = "5"
	ForexTotalVolume      ForexField = "6"
	ForexLastSize         ForexField = "7"
	ForexQuoteTime        ForexField = "8"
	ForexTradeTime        ForexField = "9"
	ForexHighPrice        ForexField = "10"
	ForexLowPrice         ForexField = "11"
	ForexClosePrice       ForexField = "12"
	ForexExchangeID       ForexField = "13"
	ForexDescription      ForexField = "14"
	ForexOpenPrice        ForexField = "15"
	ForexNetChange        ForexField = "16"
	ForexPercentChange    ForexField = "17"
	ForexExchangeName     ForexField = "18"
	ForexDigits           ForexField = "19"
	ForexSecurityStatus   ForexField = "20"
	ForexTick             ForexField = "21"
	ForexTickAmount       ForexField = "22"
	ForexProduct          ForexField = "23"
	ForexTradingHours     ForexField = "24"
	ForexIsTradable       ForexField = "25"
	ForexMarketMaker      ForexField = "26"
	ForexFiftyTwoWeekHigh ForexField = "27"
	ForexFiftyTwoWeekLow  ForexField = "28"
	ForexMark             ForexField = "29"
)

// ChartEquityField is a CHART_EQUITY field id.
type ChartEquityField string

// ChartEquityField values.
const (
	ChartEquitySymbol     ChartEquityField = "0"
	ChartEquityOpenPrice  ChartEquityField = "1"
	ChartEquityHighPrice  ChartEquityField = "2"
	ChartEquityLowPrice   ChartEquityField = "3"
	ChartEquityClosePrice ChartEquityField = "4"
	ChartEquityVolume     ChartEquityField = "5"
	ChartEquitySequence   ChartEquityField = "6"
	ChartEquityChartTime  ChartEquityField = "7"
	ChartEquityChartDay   ChartEquityField = "8"
)

// TimesaleField is a TIMESALE_* field id.
type TimesaleField string

// TimesaleField values.
const (
	TimesaleSymbol       TimesaleField = "0"
	TimesaleTradeTime    TimesaleField = "1"
	TimesaleLastPrice    TimesaleField = "2"
	TimesaleLastSize     TimesaleField = "3"
	TimesaleLastSequence TimesaleField = "4"
)

// NewsField is a NEWS_HEADLINE field id.
type NewsField string

// NewsField values.
const (
	NewsSymbol          NewsField = "0"
	NewsErrorCode       NewsField = "1"
	NewsStoryDatetime   NewsField = "2"
	NewsHeadlineID      NewsField = "3"
	NewsStatus          NewsField = "4"
	NewsHeadline        NewsField = "5"
	NewsStoryID         NewsField = "6"
	NewsCountForKeyword NewsField = "7"
	NewsKeywordArray    NewsField = "8"
	NewsIsHot           NewsField = "9"
	NewsStorySource     NewsField = "10"
)

// OptionField is an OPTION (level one option quote) field id.
type OptionField string

// OptionField values.
const (
	OptionSymbol                 OptionField = "0"
	OptionDescription            OptionField = "1"
	OptionBidPrice               OptionField = "2"
	OptionAskPrice               OptionField = "3"
	OptionLastPrice              OptionField = "4"
	OptionHighPrice              OptionField = "5"
	OptionLowPrice               OptionField = "6"
	OptionClosePrice             OptionField = "7"
	OptionTotalVolume            OptionField = "8"
	OptionOpenInterest           OptionField = "9"
	OptionVolatility             OptionField = "10"
	OptionQuoteTime              OptionField = "11"
	OptionTradeTime              OptionField = "12"
	OptionMoneyIntrinsicValue    OptionField = "13"
	OptionQuoteDay               OptionField = "14"
	OptionTradeDay               OptionField = "15"
	OptionExpirationYear         OptionField = "16"
	OptionMultiplier             OptionField = "17"
	OptionDigits                 OptionField = "18"
	OptionOpenPrice              OptionField = "19"
	OptionBidSize                OptionField = "20"
	OptionAskSize                OptionField = "21"
	OptionLastSize               OptionField = "22"
	OptionNetChange              OptionField = "23"
	OptionStrikePrice            OptionField = "24"
	OptionContractType           OptionField = "25"
	OptionUnderlying             OptionField = "26"
	OptionExpirationMonth        OptionField = "27"
	OptionDeliverables           OptionField = "28"
	OptionTimeValue              OptionField = "29"
	OptionExpirationDay          OptionField = "30"
	OptionDaysToExpiration       OptionField = "31"
	OptionDelta                  OptionField = "32"
	OptionGamma                  OptionField = "33"
	OptionTheta                  OptionField = "34"
	OptionVega                   OptionField = "35"
	OptionRho                    OptionField = "36"
	OptionSecurityStatus         OptionField = "37"
	OptionTheoreticalOptionValue OptionField = "38"
	OptionUnderlyingPrice        OptionField = "39"
	OptionUVExpirationType       OptionField = "40"
	OptionMark                   OptionField = "41"
)

// FuturesField is a LEVELONE_FUTURES field id.
type FuturesField string

// FuturesField values.
const (
	FuturesSymbol          FuturesField = "0"
	FuturesBidPrice        FuturesField = "1"
	FuturesAskPrice        FuturesField = "2"
	FuturesLastPrice       FuturesField = "3"
	FuturesBidSize         FuturesField = "4"
	FuturesAskSize         FuturesField = "5"
	FuturesAskID           FuturesField = "6"
	FuturesBidID           FuturesField = "7"
	FuturesTotalVolume     FuturesField = "8"
	FuturesLastSize        FuturesField = "9"
	FuturesQuoteTime       FuturesField = "10"
	FuturesTradeTime       FuturesField = "11"
	FuturesHighPrice       FuturesField = "12"
	FuturesLowPrice        FuturesField = "13"
	FuturesClosePrice      FuturesField = "14"
	FuturesExchangeID      FuturesField = "15"
	FuturesDescription     FuturesField = "16"
	FuturesLastID          FuturesField = "17"
	FuturesOpenPrice       FuturesField = "18"
	FuturesNetChange       FuturesField = "19"
	FuturesPercentChange   FuturesField = "20"
	FuturesExchangeName    FuturesField = "21"
	FuturesSecurityStatus  FuturesField = "22"
	FuturesOpenInterest    FuturesField = "23"
	FuturesMark            FuturesField = "24"
	FuturesTick            FuturesField = "25"
	FuturesTickAmount      FuturesField = "26"
	FuturesProduct         FuturesField = "27"
	FuturesPriceFormat     FuturesField = "28"
	FuturesTradingHours    FuturesField = "29"
	FuturesIsTradable      FuturesField = "30"
	FuturesMultiplier      FuturesField = "31"
	FuturesIsActive        FuturesField = "32"
	FuturesSettlementPrice FuturesField = "33"
	FuturesActiveSymbol    FuturesField = "34"
	FuturesExpirationDate  FuturesField = "35"
)

// FuturesOptionsField is a LEVELONE_FUTURES_OPTIONS field id.
type FuturesOptionsField string

// FuturesOptionsField values.
const (
	FuturesOptionsSymbol          FuturesOptionsField = "0"
	FuturesOptionsBidPrice        FuturesOptionsField = "1"
	FuturesOptionsAskPrice        FuturesOptionsField = "2"
	FuturesOptionsLastPrice       FuturesOptionsField = "3"
	FuturesOptionsBidSize         FuturesOptionsField = "4"
	FuturesOptionsAskSize         FuturesOptionsField = "5"
	FuturesOptionsAskID           FuturesOptionsField = "6"
	FuturesOptionsBidID           FuturesOptionsField = "7"
	FuturesOptionsTotalVolume     FuturesOptionsField = "8"
	FuturesOptionsLastSize        FuturesOptionsField = "9"
	FuturesOptionsQuoteTime       FuturesOptionsField = "10"
	FuturesOptionsTradeTime       FuturesOptionsField = "11"
	FuturesOptionsHighPrice       FuturesOptionsField = "12"
	FuturesOptionsLowPrice        FuturesOptionsField = "13"
	FuturesOptionsClosePrice      FuturesOptionsField = "14"
	FuturesOptionsExchangeID      FuturesOptionsField = "15"
	FuturesOptionsDescription     FuturesOptionsField = "16"
	FuturesOptionsLastID          FuturesOptionsField = "17"
	FuturesOptionsOpenPrice       FuturesOptionsField = "18"
	FuturesOptionsNetChange       FuturesOptionsField = "19"
	FuturesOptionsPercentChange   FuturesOptionsField = "20"
	FuturesOptionsExchangeName    FuturesOptionsField = "21"
	FuturesOptionsSecurityStatus  FuturesOptionsField = "22"
	FuturesOptionsOpenInterest    FuturesOptionsField = "23"
	FuturesOptionsMark            FuturesOptionsField = "24"
	FuturesOptionsTick            FuturesOptionsField = "25"
	FuturesOptionsTickAmount      FuturesOptionsField = "26"
	FuturesOptionsProduct         FuturesOptionsField = "27"
	FuturesOptionsPriceFormat     FuturesOptionsField = "28"
	FuturesOptionsTradingHours    FuturesOptionsField = "29"
	FuturesOptionsIsTradable      FuturesOptionsField = "30"
	FuturesOptionsMultiplier      FuturesOptionsField = "31"
	FuturesOptionsIsActive        FuturesOptionsField = "32"
	FuturesOptionsSettlementPrice FuturesOptionsField = "33"
	FuturesOptionsActiveSymbol    FuturesOptionsField = "34"
	FuturesOptionsExpirationDate  FuturesOptionsField = "35"
)

// ChartFuturesField is a CHART_FUTURES or CHART_OPTIONS field id.
type ChartFuturesField string

// ChartFuturesField values.
const (
	ChartFuturesSymbol     ChartFuturesField = "0"
	ChartFuturesChartTime  ChartFuturesField = "1"
	ChartFuturesOpenPrice  ChartFuturesField = "2"
	ChartFuturesHighPrice  ChartFuturesField = "3"
	ChartFuturesLowPrice   ChartFuturesField = "4"
	ChartFuturesClosePrice ChartFuturesField = "5"
	ChartFuturesVolume     ChartFuturesField = "6"
)

// Every field of a catalog, as one comma-separated value.
var (
	QuoteAll          = allOf[QuoteField](53)
	OptionAll         = allOf[OptionField](42)
	FuturesAll        = allOf[FuturesField](36)
	FuturesOptionsAll = allOf[FuturesOptionsField](36)
	ForexAll          = allOf[ForexField](30)
	ChartEquityAll    = allOf[ChartEquityField](9)
	ChartFuturesAll   = allOf[ChartFuturesField](7)
	TimesaleAll       = allOf[TimesaleField](5)
	NewsAll           = allOf[NewsField](11)
)
