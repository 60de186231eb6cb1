package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.Arabic,
}

var matcher = language.NewMatcher(supportedLanguages)

type translation struct {
	en string
	ar string
}

// Keys are the ledger error codes plus player notification templates.
var translations = map[string]translation{
	"unauthenticated":          {"Session could not be verified. Please reopen the app.", "تعذر التحقق من الجلسة. يرجى إعادة فتح التطبيق."},
	"invalid_identity":         {"Session does not carry a valid user.", "الجلسة لا تحتوي على مستخدم صالح."},
	"invalid_request":          {"Invalid request.", "طلب غير صالح."},
	"invalid_amount":           {"Invalid amount.", "مبلغ غير صالح."},
	"amount_below_minimum":     {"Amount is below the minimum withdrawal.", "المبلغ أقل من الحد الأدنى للسحب."},
	"amount_above_maximum":     {"Amount is above the maximum withdrawal.", "المبلغ أعلى من الحد الأقصى للسحب."},
	"invalid_currency":         {"Unsupported currency.", "عملة غير مدعومة."},
	"invalid_payment_method":   {"Unsupported payment method.", "طريقة دفع غير مدعومة."},
	"invalid_destination":      {"Invalid phone number or wallet address.", "رقم هاتف أو عنوان محفظة غير صالح."},
	"feature_disabled":         {"This feature is currently disabled.", "هذه الميزة معطلة حاليا."},
	"invalid_setting":          {"Invalid setting value.", "قيمة إعداد غير صالحة."},
	"promo_code_exists":        {"Promo code already exists.", "كود الخصم موجود بالفعل."},
	"task_exists":              {"Task already exists.", "المهمة موجودة بالفعل."},
	"no_plays_available":       {"No plays available.", "لا توجد محاولات متاحة."},
	"account_banned":           {"Your account is banned.", "حسابك محظور."},
	"insufficient_balance":     {"Insufficient balance.", "رصيد غير كاف."},
	"promo_already_used":       {"You have already used this promo code.", "لقد استخدمت هذا الكود من قبل."},
	"promo_expired":            {"This promo code has expired.", "انتهت صلاحية هذا الكود."},
	"promo_exhausted":          {"This promo code has reached its usage limit.", "وصل هذا الكود إلى الحد الأقصى للاستخدام."},
	"already_rewarded":         {"Reward already received.", "تم استلام المكافأة بالفعل."},
	"task_already_completed":   {"Task already completed.", "تم إكمال المهمة بالفعل."},
	"withdrawal_not_pending":   {"Withdrawal is no longer pending.", "طلب السحب لم يعد قيد الانتظار."},
	"ad_expired":               {"This ad has expired.", "انتهت صلاحية هذا الإعلان."},
	"daily_view_limit_reached": {"Daily view limit reached.", "تم الوصول إلى الحد اليومي للمشاهدات."},
	"temporarily_unavailable":  {"Service is busy, please try again.", "الخدمة مشغولة، يرجى المحاولة مرة أخرى."},
	"account_not_found":        {"Account not found.", "الحساب غير موجود."},
	"promo_not_found":          {"Promo code not found.", "كود الخصم غير موجود."},
	"ad_not_found":             {"Ad not found.", "الإعلان غير موجود."},
	"view_not_found":           {"Ad view not found.", "المشاهدة غير موجودة."},
	"task_not_found":           {"Task not found.", "المهمة غير موجودة."},
	"withdrawal_not_found":     {"Withdrawal not found.", "طلب السحب غير موجود."},
	"internal_error":           {"Something went wrong.", "حدث خطأ ما."},

	"notify_referral_reward":      {"You invited %d friends and earned %d free plays!", "لقد دعوت %d أصدقاء وحصلت على %d محاولات مجانية!"},
	"notify_withdrawal_completed": {"Your withdrawal of %s %s was sent. Reference: %s", "تم إرسال سحبك بقيمة %s %s. المرجع: %s"},
	"notify_withdrawal_rejected":  {"Your withdrawal of %s %s was rejected: %s", "تم رفض سحبك بقيمة %s %s: %s"},
}

func init() {
	for key, t := range translations {
		_ = message.SetString(language.English, key, t.en)
		_ = message.SetString(language.Arabic, key, t.ar)
	}
}

// MatchLanguage picks the supported language closest to an IETF code;
// unknown or empty codes fall back to English.
func MatchLanguage(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.English
	}
	_, idx, _ := matcher.Match(tag)
	return supportedLanguages[idx]
}

// Localize renders the message for key in the language closest to lang.
func Localize(lang, key string, args ...interface{}) string {
	if _, ok := translations[key]; !ok {
		key = "internal_error"
	}
	return message.NewPrinter(MatchLanguage(lang)).Sprintf(key, args...)
}
