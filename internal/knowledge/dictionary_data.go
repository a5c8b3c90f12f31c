package knowledge

import "ai_tutor_backend/internal/model"

// 内置词表。条目来自 K12 课标常见考点，按学科分组
// 词表变更是数据变更，不影响任何算法路径
var builtinEntries = []Entry{
	// ---------- 数学 ----------
	{Subject: model.SubjectMath, Name: "一元一次方程", Code: "M-ALG-101", Keywords: []string{"方程", "未知数", "解方程", "移项"}, Related: []string{"一元二次方程", "不等式"}},
	{Subject: model.SubjectMath, Name: "一元二次方程", Code: "M-ALG-201", Keywords: []string{"判别式", "求根公式", "配方法", "因式分解"}, Related: []string{"二次函数", "一元一次方程"}},
	{Subject: model.SubjectMath, Name: "二次函数", Code: "M-FUN-201", Keywords: []string{"抛物线", "顶点", "对称轴", "开口方向", "最值"}, Related: []string{"一元二次方程", "函数图像"}},
	{Subject: model.SubjectMath, Name: "一次函数", Code: "M-FUN-101", Keywords: []string{"斜率", "截距", "正比例", "图像"}, Related: []string{"二次函数", "函数图像"}},
	{Subject: model.SubjectMath, Name: "反比例函数", Code: "M-FUN-102", Keywords: []string{"双曲线", "反比例", "k值"}, Related: []string{"一次函数"}},
	{Subject: model.SubjectMath, Name: "函数图像", Code: "M-FUN-001", Keywords: []string{"坐标系", "图像", "平移", "对称"}, Related: []string{"一次函数", "二次函数"}},
	{Subject: model.SubjectMath, Name: "不等式", Code: "M-ALG-301", Keywords: []string{"不等号", "解集", "数轴"}, Related: []string{"一元一次方程"}},
	{Subject: model.SubjectMath, Name: "分式", Code: "M-ALG-401", Keywords: []string{"分母", "分子", "约分", "通分"}, Related: []string{"因式分解"}},
	{Subject: model.SubjectMath, Name: "因式分解", Code: "M-ALG-501", Keywords: []string{"提公因式", "平方差", "完全平方"}, Related: []string{"一元二次方程", "分式"}},
	{Subject: model.SubjectMath, Name: "三角形", Code: "M-GEO-101", Keywords: []string{"内角和", "三边关系", "中线", "高线"}, Related: []string{"全等三角形", "相似三角形"}},
	{Subject: model.SubjectMath, Name: "全等三角形", Code: "M-GEO-102", Keywords: []string{"全等", "SSS", "SAS", "ASA", "对应边"}, Related: []string{"三角形", "相似三角形"}},
	{Subject: model.SubjectMath, Name: "相似三角形", Code: "M-GEO-103", Keywords: []string{"相似比", "对应角", "位似"}, Related: []string{"全等三角形", "勾股定理"}},
	{Subject: model.SubjectMath, Name: "勾股定理", Code: "M-GEO-201", Keywords: []string{"直角三角形", "斜边", "直角边", "平方和"}, Related: []string{"三角形", "锐角三角函数"}},
	{Subject: model.SubjectMath, Name: "锐角三角函数", Code: "M-GEO-301", Keywords: []string{"正弦", "余弦", "正切", "sin", "cos", "tan"}, Related: []string{"勾股定理"}},
	{Subject: model.SubjectMath, Name: "圆", Code: "M-GEO-401", Keywords: []string{"半径", "直径", "圆心角", "圆周角", "切线", "弧长"}, Related: []string{"三角形"}},
	{Subject: model.SubjectMath, Name: "概率", Code: "M-STA-101", Keywords: []string{"随机事件", "可能性", "树状图", "列表法"}, Related: []string{"统计"}},
	{Subject: model.SubjectMath, Name: "统计", Code: "M-STA-201", Keywords: []string{"平均数", "中位数", "众数", "方差", "频率"}, Related: []string{"概率"}},

	// ---------- 语文 ----------
	{Subject: model.SubjectChinese, Name: "文言文阅读", Code: "C-RD-101", Keywords: []string{"文言", "实词", "虚词", "翻译", "通假字"}, Related: []string{"古诗词鉴赏"}},
	{Subject: model.SubjectChinese, Name: "古诗词鉴赏", Code: "C-RD-201", Keywords: []string{"意象", "意境", "修辞", "抒情", "炼字"}, Related: []string{"文言文阅读"}},
	{Subject: model.SubjectChinese, Name: "现代文阅读", Code: "C-RD-301", Keywords: []string{"中心思想", "段落大意", "表达方式", "论点", "论据"}, Related: []string{"记叙文写作"}},
	{Subject: model.SubjectChinese, Name: "记叙文写作", Code: "C-WR-101", Keywords: []string{"记叙", "描写", "细节", "立意", "选材"}, Related: []string{"议论文写作"}},
	{Subject: model.SubjectChinese, Name: "议论文写作", Code: "C-WR-201", Keywords: []string{"论点", "论证", "议论", "驳论"}, Related: []string{"记叙文写作"}},
	{Subject: model.SubjectChinese, Name: "病句辨析", Code: "C-LAN-101", Keywords: []string{"病句", "成分残缺", "搭配不当", "语序不当"}, Related: []string{"标点符号"}},
	{Subject: model.SubjectChinese, Name: "标点符号", Code: "C-LAN-201", Keywords: []string{"标点", "顿号", "分号", "引号"}, Related: []string{"病句辨析"}},

	// ---------- 英语 ----------
	{Subject: model.SubjectEnglish, Name: "一般现在时", Code: "E-GRA-101", Keywords: []string{"一般现在", "第三人称单数", "频度副词"}, Related: []string{"一般过去时", "现在进行时"}},
	{Subject: model.SubjectEnglish, Name: "一般过去时", Code: "E-GRA-102", Keywords: []string{"一般过去", "过去式", "不规则动词"}, Related: []string{"一般现在时", "现在完成时"}},
	{Subject: model.SubjectEnglish, Name: "现在进行时", Code: "E-GRA-103", Keywords: []string{"进行时", "be doing", "现在分词"}, Related: []string{"一般现在时"}},
	{Subject: model.SubjectEnglish, Name: "现在完成时", Code: "E-GRA-104", Keywords: []string{"完成时", "have done", "过去分词", "already", "yet"}, Related: []string{"一般过去时"}},
	{Subject: model.SubjectEnglish, Name: "被动语态", Code: "E-GRA-201", Keywords: []string{"被动", "be done", "语态"}, Related: []string{"一般过去时"}},
	{Subject: model.SubjectEnglish, Name: "定语从句", Code: "E-GRA-301", Keywords: []string{"定语从句", "关系代词", "which", "that", "who"}, Related: []string{"宾语从句"}},
	{Subject: model.SubjectEnglish, Name: "宾语从句", Code: "E-GRA-302", Keywords: []string{"宾语从句", "语序", "引导词"}, Related: []string{"定语从句"}},
	{Subject: model.SubjectEnglish, Name: "完形填空", Code: "E-RD-101", Keywords: []string{"完形", "上下文", "语境"}, Related: []string{"阅读理解"}},
	{Subject: model.SubjectEnglish, Name: "阅读理解", Code: "E-RD-201", Keywords: []string{"阅读", "主旨大意", "细节理解", "推理判断"}, Related: []string{"完形填空"}},

	// ---------- 物理 ----------
	{Subject: model.SubjectPhysics, Name: "牛顿运动定律", Code: "P-MEC-101", Keywords: []string{"牛顿", "惯性", "合力", "加速度", "受力分析"}, Related: []string{"力的合成与分解"}},
	{Subject: model.SubjectPhysics, Name: "力的合成与分解", Code: "P-MEC-102", Keywords: []string{"合力", "分力", "平行四边形", "矢量"}, Related: []string{"牛顿运动定律"}},
	{Subject: model.SubjectPhysics, Name: "欧姆定律", Code: "P-ELE-101", Keywords: []string{"电压", "电流", "电阻", "串联", "并联"}, Related: []string{"电功率"}},
	{Subject: model.SubjectPhysics, Name: "电功率", Code: "P-ELE-201", Keywords: []string{"功率", "电能", "焦耳定律"}, Related: []string{"欧姆定律"}},
	{Subject: model.SubjectPhysics, Name: "浮力", Code: "P-MEC-201", Keywords: []string{"阿基米德", "排开液体", "浮沉条件", "密度"}, Related: []string{"压强"}},
	{Subject: model.SubjectPhysics, Name: "压强", Code: "P-MEC-202", Keywords: []string{"压力", "受力面积", "液体压强", "大气压"}, Related: []string{"浮力"}},
	{Subject: model.SubjectPhysics, Name: "光的折射", Code: "P-OPT-101", Keywords: []string{"折射", "透镜", "凸透镜", "成像规律", "焦距"}, Related: []string{}},
}
